// Package gpucore defines the low-level GPU contract the upload, atlas and
// mesh passes are written against.
//
// The contract follows the explicit model of Vulkan: objects are created
// unbound, their memory requirements are queried, memory is allocated from
// a typed heap and bound at an offset, and work is recorded into command
// buffers for a specific queue family and submitted with a fence.
//
//	             +------------------+
//	             |     gpucore      |
//	             |  Device, Queue,  |
//	             |  CommandBuffer   |
//	             +--------+---------+
//	                      |
//	        +-------------+-------------+
//	        |                           |
//	+-------v--------+         +--------v--------+
//	|  backend/host  |         |  backend/wgpu   |
//	| (host memory)  |         |  (hal.Device)   |
//	+----------------+         +-----------------+
//
// # Queue-family ownership
//
// A resource written on one queue family and read on another needs a
// release barrier on the producer queue and an acquire barrier on the
// consumer queue. The producer records the release and stores the acquire
// half on the object with SetPending; the next pass that uses the object
// calls AcquirePending, or RecordAcquires for a batch. Each release is
// acquired exactly once: SetPending on an object that already has one and
// AcquirePending on an object that has none both panic.
package gpucore
