/*
Package domain contains the core types shared by the toppling engines, the stores and the
outer surfaces.

It is kept free of I/O. Engines report their progress through the types defined here, and
adapters persist them.

# Key Entities

  - Variant: the toppling rule being simulated (Aether or Spread Integer Value).
  - StepResult: the outcome of one step (changed, bounds reached, maxima, bound, step).
  - BlockKey: identifies a contiguous run of slices held by a block store.
  - Properties: the persisted state of a run, enough to restore it.
  - LifecycleHooks: callbacks for observing steps, growth and block I/O.
*/
package domain
