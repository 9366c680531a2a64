package builder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/moby/go-archive"
	"github.com/rs/zerolog"
)

const (
	DefaultBuildImage = "node:20-alpine"

	containerWorkdir = "/workspace"
)

// DockerRunner runs every command in a throwaway container. The workspace is
// copied into the container before the command runs and copied back after it
// exits, so nothing on the host is mounted into the container.
type DockerRunner struct {
	cli   *client.Client
	image string
	log   zerolog.Logger
}

func NewDockerRunner(image string, log zerolog.Logger) (*DockerRunner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	if image == "" {
		image = DefaultBuildImage
	}
	return &DockerRunner{cli: cli, image: image, log: log}, nil
}

// Shutdown closes the docker client when the injector shuts down.
func (r *DockerRunner) Shutdown() error {
	return r.cli.Close()
}

// Run implements Runner.
func (r *DockerRunner) Run(ctx context.Context, command, dir string) (*Result, error) {
	if err := r.ensureImage(ctx); err != nil {
		return nil, err
	}

	resp, err := r.cli.ContainerCreate(ctx,
		&container.Config{
			Image:      r.image,
			Cmd:        []string{"sh", "-c", command},
			WorkingDir: containerWorkdir,
			Labels: map[string]string{
				"sitehost.enabled":   "true",
				"sitehost.workspace": filepath.Base(dir),
			},
		},
		&container.HostConfig{}, nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}
	defer func() {
		if err := r.cli.ContainerRemove(context.WithoutCancel(ctx), resp.ID, container.RemoveOptions{Force: true}); err != nil {
			r.log.Warn().Err(err).Str("container", resp.ID).Msg("failed to remove build container")
		}
	}()

	if err := r.copyIn(ctx, resp.ID, dir); err != nil {
		return nil, err
	}

	if err := r.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}
	r.log.Debug().Str("container", resp.ID).Str("command", command).Msg("started build container")

	res := &Result{}
	statusCh, errCh := r.cli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return nil, fmt.Errorf("failed to wait for container: %w", err)
	case status := <-statusCh:
		res.ExitCode = int(status.StatusCode)
	}

	logs, err := r.cli.ContainerLogs(ctx, resp.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read container logs: %w", err)
	}
	defer logs.Close()
	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logs); err != nil {
		return nil, fmt.Errorf("failed to demux container logs: %w", err)
	}
	res.Stdout, res.Stderr = stdout.String(), stderr.String()

	if err := r.copyOut(ctx, resp.ID, dir); err != nil {
		return res, err
	}
	return res, nil
}

func (r *DockerRunner) ensureImage(ctx context.Context) error {
	if _, err := r.cli.ImageInspect(ctx, r.image); err == nil {
		return nil
	}

	r.log.Info().Str("image", r.image).Msg("pulling build image")
	rc, err := r.cli.ImagePull(ctx, r.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", r.image, err)
	}
	defer rc.Close()

	dec := json.NewDecoder(rc)
	for {
		var jm jsonmessage.JSONMessage
		if err := dec.Decode(&jm); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("failed to decode json message: %w", err)
		}
		if jm.Error != nil {
			return fmt.Errorf("failed to pull image %s: %s", r.image, jm.Error.Message)
		}
		if jm.Status != "" {
			r.log.Debug().Str("image", r.image).Msg(jm.Status)
		}
	}
	return nil
}

func (r *DockerRunner) copyIn(ctx context.Context, containerID, dir string) error {
	tar, err := archive.TarWithOptions(dir, &archive.TarOptions{})
	if err != nil {
		return fmt.Errorf("failed to create tar archive: %w", err)
	}
	defer tar.Close()

	if err := r.cli.CopyToContainer(ctx, containerID, containerWorkdir, tar, container.CopyToContainerOptions{}); err != nil {
		return fmt.Errorf("failed to copy workspace into container: %w", err)
	}
	return nil
}

// copyOut copies the container workspace back over dir. The archive docker
// returns is rooted at the base name of the copied path.
func (r *DockerRunner) copyOut(ctx context.Context, containerID, dir string) error {
	rc, _, err := r.cli.CopyFromContainer(ctx, containerID, containerWorkdir)
	if err != nil {
		return fmt.Errorf("failed to copy workspace out of container: %w", err)
	}
	defer rc.Close()

	rebased := archive.RebaseArchiveEntries(rc, filepath.Base(containerWorkdir), filepath.Base(dir))
	defer rebased.Close()
	if err := archive.Untar(rebased, filepath.Dir(dir), &archive.TarOptions{NoLchown: true}); err != nil {
		return fmt.Errorf("failed to extract workspace: %w", err)
	}
	return nil
}
