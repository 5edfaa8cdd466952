// Package sandbox runs release tools inside a container so the freeze step
// can target Windows from any build host.
package sandbox

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/imagecompressor/tools/runner"
	"github.com/imagecompressor/tools/util"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/pkg/errors"
)

// MountPoint is where the project root appears inside the container.
const MountPoint = "/src"

// containerAPI is the subset of the Docker client the sandbox uses.
type containerAPI interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *specs.Platform, containerName string) (container.ContainerCreateCreatedBody, error)
	ContainerStart(ctx context.Context, containerID string, options types.ContainerStartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.ContainerWaitOKBody, <-chan error)
	ContainerLogs(ctx context.Context, container string, options types.ContainerLogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options types.ContainerRemoveOptions) error
}

// Sandbox is a runner.Runner executing commands in containers of Image
// with HostRoot bind-mounted at MountPoint.
type Sandbox struct {
	Image    string
	HostRoot string

	cli containerAPI
}

// New creates a sandbox using the Docker environment (DOCKER_HOST and friends).
func New(image, hostRoot string) (*Sandbox, error) {
	if image == "" {
		return nil, errors.New("a container image needs to be present")
	}
	cli, err := client.NewClientWithOpts(
		client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errors.Wrap(err, "could not create client")
	}
	return &Sandbox{Image: image, HostRoot: hostRoot, cli: cli}, nil
}

// pathEnd ends a path embedded in an argument, such as the source of
// "--add-binary src;dest".
const pathEnd = ";:,=\"'"

// translate rewrites HostRoot and paths below it to container paths.
// Paths that merely share HostRoot as a string prefix are left alone.
func (s *Sandbox) translate(arg string) string {
	root := strings.TrimRight(s.HostRoot, `/\`)
	if root == "" {
		return arg
	}
	windows := strings.Contains(root, `\`)

	var b strings.Builder
	for {
		i := strings.Index(arg, root)
		if i < 0 {
			b.WriteString(arg)
			return b.String()
		}
		rest := arg[i+len(root):]
		if rest != "" && !strings.ContainsAny(rest[:1], `/\`+pathEnd) {
			b.WriteString(arg[:i+len(root)])
			arg = rest
			continue
		}

		b.WriteString(arg[:i])
		b.WriteString(MountPoint)
		n := strings.IndexAny(rest, pathEnd)
		if n < 0 {
			n = len(rest)
		}
		tail := rest[:n]
		if windows {
			tail = strings.ReplaceAll(tail, `\`, "/")
		}
		b.WriteString(tail)
		arg = rest[n:]
	}
}

// Run executes c in a fresh container, removed once it exits.
func (s *Sandbox) Run(ctx context.Context, c runner.Command) error {
	args := make([]string, 0, len(c.Args))
	for _, a := range c.Args {
		args = append(args, s.translate(a))
	}
	workdir := MountPoint
	if c.Dir != "" {
		workdir = s.translate(c.Dir)
	}

	util.Infof(ctx, "run in %s: %s\n", s.Image, c)
	resp, err := s.cli.ContainerCreate(ctx,
		&container.Config{
			Image:      s.Image,
			Entrypoint: []string{c.Name},
			Cmd:        args,
			Env:        c.Env,
			WorkingDir: workdir,
		},
		&container.HostConfig{
			Mounts: []mount.Mount{
				{
					Type:   mount.TypeBind,
					Source: s.HostRoot,
					Target: MountPoint,
				},
			},
		}, nil, nil, "")
	if err != nil {
		return errors.Wrap(err, "could not create container")
	}

	// once we are done remove the container
	defer func() {
		if err := s.cli.ContainerRemove(context.Background(), resp.ID, types.ContainerRemoveOptions{Force: true}); err != nil {
			util.Warnf(ctx, "could not remove container %s: %s\n", resp.ID, err)
		}
	}()

	if err := s.cli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return errors.Wrap(err, "could not start container")
	}

	var status int64
	statusCh, errCh := s.cli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "failed to wait for container")
		}
	case body := <-statusCh:
		status = body.StatusCode
	}

	opts := types.ContainerLogsOptions{ShowStdout: true, ShowStderr: true}
	logsReader, err := s.cli.ContainerLogs(ctx, resp.ID, opts)
	if err != nil {
		return errors.Wrap(err, "failed to retrieve logs")
	}
	defer logsReader.Close()

	buff := new(bytes.Buffer)
	if _, err := stdcopy.StdCopy(buff, buff, logsReader); err != nil {
		return errors.Wrap(err, "could not read logs")
	}
	sc := bufio.NewScanner(bytes.NewReader(buff.Bytes()))
	for sc.Scan() {
		util.Infof(ctx, "| %s\n", sc.Text())
	}

	if status != 0 {
		return &runner.ExitError{Command: c, Code: int(status), Output: buff.String()}
	}
	return nil
}
