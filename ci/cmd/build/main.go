package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ecr"

	"dagger.io/dagger"

	"github.com/ceramicnetwork/go-mint"
	"github.com/ceramicnetwork/go-mint/common/aws/config"
	"github.com/ceramicnetwork/go-mint/common/loggers"
)

const EcrUserName = "AWS"
const ImageName = "app-nft-minter"

func main() {
	ctx := context.Background()

	envTag := os.Getenv(mint.Env_EnvTag)
	if !mint.ValidEnvTag(envTag) {
		log.Fatalf("build: invalid %s: %q", mint.Env_EnvTag, envTag)
	}

	client, err := dagger.Connect(ctx, dagger.WithLogOutput(os.Stdout))
	if err != nil {
		panic(err)
	}
	defer client.Close()

	contextDir := client.Host().Directory(".")
	registry := os.Getenv(mint.Env_AwsAccountId) + ".dkr.ecr." + os.Getenv(mint.Env_AwsRegion) + ".amazonaws.com"
	container := contextDir.
		DockerBuild(dagger.DirectoryDockerBuildOpts{
			Platform:  "linux/amd64",
			BuildArgs: []dagger.BuildArg{{Name: mint.Env_EnvTag, Value: envTag}},
		})
	tags := []string{envTag}
	for _, env := range []string{mint.Env_Branch, mint.Env_Sha, mint.Env_ShaTag} {
		if tag := os.Getenv(env); len(tag) > 0 {
			tags = append(tags, tag)
		}
	}
	// Only production images get the "latest" tag
	if envTag == mint.EnvTag_Prod {
		tags = append(tags, "latest")
	}
	if err = pushImage(ctx, client, container, registry, tags); err != nil {
		log.Fatalf("build: failed to push image: %v", err)
	}
}

func pushImage(ctx context.Context, client *dagger.Client, container *dagger.Container, registry string, tags []string) error {
	// Set up registry authentication
	ecrToken := client.SetSecret("EcrAuthToken", getEcrToken(ctx))
	container = container.WithRegistryAuth(registry, EcrUserName, ecrToken)
	for _, tag := range tags {
		if addr, err := container.Publish(ctx, fmt.Sprintf("%s/%s:%s", registry, ImageName, tag)); err != nil {
			return err
		} else {
			log.Printf("build: published %s", addr)
		}
	}
	return nil
}

func getEcrToken(ctx context.Context) string {
	awsCfg, err := config.AwsConfig(ctx, loggers.NewCliLogger())
	if err != nil {
		log.Fatalf("build: error creating aws cfg: %v", err)
	}
	ecrClient := ecr.NewFromConfig(awsCfg)
	if ecrTokenOut, err := ecrClient.GetAuthorizationToken(ctx, &ecr.GetAuthorizationTokenInput{}); err != nil {
		log.Fatalf("build: error retrieving ecr auth token: %v", err)
		return ""
	} else if authToken, err := base64.StdEncoding.DecodeString(*ecrTokenOut.AuthorizationData[0].AuthorizationToken); err != nil {
		log.Fatalf("build: error decoding ecr auth token: %v", err)
		return ""
	} else {
		return strings.TrimPrefix(string(authToken), EcrUserName+":")
	}
}
