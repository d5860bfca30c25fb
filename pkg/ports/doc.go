/*
Package ports defines the driven ports (interfaces) of the toppling engine.

These interfaces decouple the models from storage implementations, so a run can be streamed
through, and backed up to, the filesystem, memory, Redis or SQLite.

# Key Interfaces

  - BlockStore: persists the serialized blocks of slices a swap model streams through.
  - PropertiesStore: persists the run properties needed to restore a model.
  - RunStore: both of the above; the unit of backup and restore.
  - DistributedLocker: guards a shared run store against concurrent writers.
*/
package ports
