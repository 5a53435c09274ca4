// Package dframe implements the storage object behind one distributed data
// frame value: a named region holding a fixed header and an opaque payload,
// shared between the process that writes a partition and the processes that
// later hand it to a host interpreter session.
//
// # Roles
//
// A Segment is created by one of two roles:
//
//   - RoleWorker (owning): opens, truncates and maps the named region and is
//     the only role that can populate or materialize it.
//   - RoleMaster (non-owning): keeps a heap-resident header carrying size
//     and shape hints for planning. It never touches a region.
//
// # Lifecycle
//
//	NewPlaceholder / Populate / Attach  ->  Dims, Header, Materialize  ->  Close
//
// Materialize can run any number of times and never modifies the region.
//
// # Region Layout
//
//	[ header block, page aligned ][ payload block, page aligned ]
//
// See format.Layout for offset computation.
//
// # Thread Safety
//
// A Segment is not safe for concurrent method calls. Two workers must never
// populate the same name at once, and readers must not materialize a name
// before its populate call has returned; that ordering is the caller's job.
package dframe
