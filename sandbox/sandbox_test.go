package sandbox

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"testing"

	"github.com/imagecompressor/tools/runner"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDocker struct {
	config  *container.Config
	host    *container.HostConfig
	status  int64
	logs    string
	removed []string
	forced  bool
	waitErr error
}

func (f *fakeDocker) ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, _ *network.NetworkingConfig, _ *specs.Platform, _ string) (container.ContainerCreateCreatedBody, error) {
	f.config, f.host = config, hostConfig
	return container.ContainerCreateCreatedBody{ID: "c1"}, nil
}

func (f *fakeDocker) ContainerStart(ctx context.Context, id string, _ types.ContainerStartOptions) error {
	return nil
}

func (f *fakeDocker) ContainerWait(ctx context.Context, id string, _ container.WaitCondition) (<-chan container.ContainerWaitOKBody, <-chan error) {
	statusCh := make(chan container.ContainerWaitOKBody, 1)
	errCh := make(chan error, 1)
	if f.waitErr != nil {
		errCh <- f.waitErr
	} else {
		statusCh <- container.ContainerWaitOKBody{StatusCode: f.status}
	}
	return statusCh, errCh
}

func (f *fakeDocker) ContainerLogs(ctx context.Context, id string, _ types.ContainerLogsOptions) (io.ReadCloser, error) {
	var buf bytes.Buffer
	if _, err := stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(f.logs)); err != nil {
		return nil, err
	}
	return ioutil.NopCloser(&buf), nil
}

func (f *fakeDocker) ContainerRemove(ctx context.Context, id string, opts types.ContainerRemoveOptions) error {
	f.removed = append(f.removed, id)
	f.forced = opts.Force
	return nil
}

func TestRun(t *testing.T) {
	fake := &fakeDocker{logs: "building\n"}
	s := &Sandbox{Image: "pyinstaller-windows", HostRoot: "/home/dev/compressor", cli: fake}

	err := s.Run(context.Background(), runner.Command{
		Name: "pyinstaller",
		Args: []string{"--add-binary", "/home/dev/compressor/tools/cjpeg.exe;tools", "/home/dev/compressor/compressor.py"},
		Dir:  "/home/dev/compressor",
	})
	require.NoError(t, err)

	assert.Equal(t, "pyinstaller-windows", fake.config.Image)
	assert.Equal(t, []string{"pyinstaller"}, []string(fake.config.Entrypoint))
	assert.Equal(t, []string{"--add-binary", "/src/tools/cjpeg.exe;tools", "/src/compressor.py"}, []string(fake.config.Cmd))
	assert.Equal(t, "/src", fake.config.WorkingDir)
	require.Len(t, fake.host.Mounts, 1)
	assert.Equal(t, "/home/dev/compressor", fake.host.Mounts[0].Source)
	assert.Equal(t, []string{"c1"}, fake.removed)
}

func TestRunExitStatus(t *testing.T) {
	fake := &fakeDocker{status: 2, logs: "missing module\n"}
	s := &Sandbox{Image: "pyinstaller-windows", HostRoot: "/src-host", cli: fake}

	err := s.Run(context.Background(), runner.Command{Name: "pyinstaller"})
	require.Error(t, err)
	exitErr, ok := err.(*runner.ExitError)
	require.True(t, ok)
	assert.Equal(t, 2, exitErr.Code)
	assert.Equal(t, "missing module\n", exitErr.Output)
	assert.Equal(t, []string{"c1"}, fake.removed)
}

func TestNewRequiresImage(t *testing.T) {
	_, err := New("", "/src")
	assert.Error(t, err)
}

func TestRunInterruptedForcesRemoval(t *testing.T) {
	fake := &fakeDocker{waitErr: context.Canceled}
	s := &Sandbox{Image: "pyinstaller-windows", HostRoot: "/home/dev/compressor", cli: fake}

	err := s.Run(context.Background(), runner.Command{Name: "pyinstaller"})
	require.Error(t, err)
	assert.Equal(t, []string{"c1"}, fake.removed)
	assert.True(t, fake.forced)
}

func TestTranslate(t *testing.T) {
	cases := []struct {
		name string
		root string
		arg  string
		want string
	}{
		{name: "root", root: "/work/app", arg: "/work/app", want: "/src"},
		{name: "below root", root: "/work/app", arg: "/work/app/compressor.py", want: "/src/compressor.py"},
		{name: "trailing slash root", root: "/work/app/", arg: "/work/app/icon.ico", want: "/src/icon.ico"},
		{name: "sibling", root: "/work/app", arg: "/work/app-assets/logo.png", want: "/work/app-assets/logo.png"},
		{name: "add binary", root: "/work/app", arg: "/work/app/tools/cjpeg.exe:tools", want: "/src/tools/cjpeg.exe:tools"},
		{name: "flag value", root: "/work/app", arg: "--distpath=/work/app/dist", want: "--distpath=/src/dist"},
		{name: "unrelated", root: "/work/app", arg: "--onefile", want: "--onefile"},
		{name: "windows root", root: `C:\work\app`, arg: `C:\work\app\tools\cjpeg.exe;tools`, want: "/src/tools/cjpeg.exe;tools"},
		{name: "windows sibling", root: `C:\work\app`, arg: `C:\work\app2\x.exe`, want: `C:\work\app2\x.exe`},
		{name: "no root", root: "", arg: "/work/app/x", want: "/work/app/x"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := &Sandbox{HostRoot: tc.root}
			assert.Equal(t, tc.want, s.translate(tc.arg))
		})
	}
}
