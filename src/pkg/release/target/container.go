package target

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/pkg/errors"

	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/print"
)

// Docker builds inside a container through the Docker Engine API. The daemon
// is located from the usual DOCKER_HOST environment unless Host is set.
type Docker struct {
	Host   string
	Output io.Writer
}

// Build runs cmd in image with projectDir mounted at /src and waits for it to
// exit. The container is always removed afterwards.
func (d Docker) Build(ctx context.Context, image, projectDir string, cmd []string) (err error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if d.Host != "" {
		opts = append(opts, client.WithHost(d.Host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return errors.Wrap(err, "failed to connect to docker")
	}
	defer cli.Close()

	print.Verb("mounting project directory at", projectDir, "into container at /src")
	containerConfig := &container.Config{
		Image:      image,
		Cmd:        cmd,
		WorkingDir: "/src",
		Env:        []string{"CARGO_TERM_COLOR=never", "CARGO_TARGET_DIR=/src/target"},
	}
	hostConfig := &container.HostConfig{
		Mounts: []mount.Mount{
			{Type: mount.TypeBind, Source: projectDir, Target: "/src"},
		},
	}
	name := fmt.Sprintf("jxl-release-build-%d", time.Now().UnixNano())

	cnt, err := cli.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, name)
	if client.IsErrNotFound(err) {
		print.Info("Pulling image:", image)
		if err = pull(ctx, cli, image); err != nil {
			return err
		}
		cnt, err = cli.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, name)
	}
	if err != nil {
		return errors.Wrap(err, "failed to create container")
	}
	defer func() {
		errRemove := cli.ContainerRemove(context.Background(), cnt.ID, types.ContainerRemoveOptions{Force: true})
		if errRemove != nil {
			print.Verb("failed to remove container", cnt.ID, errRemove)
		}
	}()

	if err = cli.ContainerStart(ctx, cnt.ID, types.ContainerStartOptions{}); err != nil {
		return errors.Wrap(err, "failed to start container")
	}

	logs, err := cli.ContainerLogs(ctx, cnt.ID, types.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to attach to container logs")
	}
	defer logs.Close()

	out := d.Output
	if out == nil {
		out = io.Discard
	}
	if _, err = stdcopy.StdCopy(out, out, logs); err != nil {
		print.Verb("container log stream ended:", err)
	}

	statusCh, errCh := cli.ContainerWait(ctx, cnt.ID, container.WaitConditionNotRunning)
	select {
	case err = <-errCh:
		return errors.Wrap(err, "failed waiting for container")
	case status := <-statusCh:
		if status.StatusCode != 0 {
			return errors.Errorf("container build exited with status %d", status.StatusCode)
		}
	}

	return nil
}

func pull(ctx context.Context, cli *client.Client, image string) error {
	reader, err := cli.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		return errors.Wrap(err, "failed to pull image")
	}
	defer reader.Close()

	if _, err = io.Copy(io.Discard, reader); err != nil {
		return errors.Wrap(err, "failed to read pull output")
	}
	return nil
}
