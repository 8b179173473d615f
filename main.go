package main

import (
	"context"
	"os"

	"github.com/yaklabco/themepipe/cmd/themepipe"
	"github.com/yaklabco/themepipe/pkg/task"
)

func main() {
	os.Exit(actualMain())
}

func actualMain() int {
	ctx := context.Background()

	rootCmd := themepipe.NewRootCmd(ctx)

	// fang has already printed the error.
	if err := themepipe.ExecuteWithFang(ctx, rootCmd); err != nil {
		return task.ExitStatus(err)
	}

	return 0
}
