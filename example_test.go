package toppling_test

import (
	"context"
	"fmt"
	"log"

	toppling "github.com/JaumeRibas/Aether2DImgMaker-sub016"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/adapters/memory"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
)

// ExampleNew runs the first step of a 2D Aether model: the source keeps a fifth of its value
// and hands a fifth to each of its four neighbors.
func ExampleNew() {
	ctx := context.Background()
	model, err := toppling.New(ctx, toppling.DefaultConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer model.Close(ctx)

	if _, err := model.Step(ctx); err != nil {
		log.Fatal(err)
	}
	for _, c := range [][]int{{0, 0}, {1, 0}, {0, -1}, {1, 1}} {
		v, _ := model.ValueAt(ctx, c)
		fmt.Println(c, v)
	}
	// Output:
	// [0 0] 200000
	// [1 0] 200000
	// [0 -1] 200000
	// [1 1] 0
}

// ExampleRestore backs a run up and resumes it in swap mode.
func ExampleRestore() {
	ctx := context.Background()
	cfg := toppling.DefaultConfig()
	cfg.Dimension = 3
	cfg.InitialValue = 5000

	model, err := toppling.New(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := toppling.Run(ctx, model, toppling.RunOptions{Steps: 10}); err != nil {
		log.Fatal(err)
	}

	backup := memory.NewStore()
	if err := model.Backup(ctx, backup); err != nil {
		log.Fatal(err)
	}
	resumed, err := toppling.Restore(ctx, backup, toppling.WithMode(domain.ModeSwap))
	if err != nil {
		log.Fatal(err)
	}
	defer resumed.Close(ctx)

	props := resumed.Properties()
	fmt.Println(props.Mode, props.Step)
	// Output: swap 10
}
