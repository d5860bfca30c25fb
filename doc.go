/*
Package toppling simulates single-source toppling cellular automata on an n-dimensional
integer lattice.

Two rules are provided. Aether shares a cell's value with its strictly smaller neighbors,
visiting them in descending groups. Spread Integer Value (SIV) shares it evenly with every
neighbor over a configurable background. Both are symmetric under axis permutations and
reflections, so a model only stores the canonical fundamental domain, the cells with
c[0] ≥ c[1] ≥ … ≥ c[n-1] ≥ 0, and grows it by one slice whenever the toppling front gets close
to its edge.

# Modes

  - memory: the whole domain is resident and stepped by one worker.
  - parallel: the whole domain is resident and split into volume-balanced ranges stepped by
    several workers.
  - swap: the domain is streamed through size-limited blocks kept in a ports.BlockStore, so a
    run can outgrow memory.

# Usage

	cfg := toppling.DefaultConfig()
	cfg.Dimension = 3
	cfg.InitialValue = -200

	model, err := toppling.New(ctx, cfg, toppling.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}
	defer model.Close(ctx)

	res, err := toppling.Run(ctx, model, toppling.RunOptions{Steps: 1000})

Configurations whose values could overflow the chosen width are rejected by New with
domain.ErrOverflowRisk before anything is allocated. Width WidthArbitrary holds cells as
math/big integers in memory, for values no fixed width can hold. A model can be saved with Backup into any
ports.RunStore and resumed later with Restore.
*/
package toppling
