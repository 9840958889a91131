// Package mesh consolidates meshes into shared device buffers.
//
// A Compiler owns the device-resident copies of individual meshes. Each
// Attachment keeps a live MeshSet, a vertex buffer and an index buffer
// holding the attachment's meshes back to back, and rebuilds it when
// meshes are added or removed. Requests that arrive while a rebuild is in
// flight are merged and applied by one follow-up pass.
//
// Meshes come from a Library; a decoded OBJ bundle is one.
package mesh
