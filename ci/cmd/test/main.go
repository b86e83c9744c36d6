package main

import (
	"context"
	"log"
	"os"

	"dagger.io/dagger"
)

func main() {
	ctx := context.Background()

	// Initialize the Dagger client
	client, err := dagger.Connect(ctx, dagger.WithLogOutput(os.Stdout))
	if err != nil {
		panic(err)
	}
	defer client.Close()

	// Cache module downloads across runs
	modCache := client.CacheVolume("go-mint-mod")

	source := client.Container().
		From("golang:1.20").
		WithMountedCache("/go/pkg/mod", modCache).
		WithDirectory(
			"/src",
			client.Host().Directory("../../../"), dagger.ContainerWithDirectoryOpts{
				Exclude: []string{"ci/", "_examples/"},
			},
		)

	runner := source.WithWorkdir("/src")

	// Run every package's tests with the race detector
	out, err := runner.WithExec([]string{"go", "test", "-race", "./..."}).Stdout(ctx)
	if err != nil {
		log.Fatalf("test: error running tests [%v]", err)
	}
	log.Printf("test: finished running tests [%s]", out)
}
