package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yifeimfd/usbip-win/pkg"
	"github.com/yifeimfd/usbip-win/stub/devconf"
)

const doc = `
value: 1
handle: 0xC0FFEE
attributes: 0x80
max_power: 50
interfaces:
  - number: 0
    class: 3
    handle: 0x100
    pipes:
      - endpoint: 0x81
        type: interrupt
        max_packet: 8
        interval: 10
        handle: 0x200
  - number: 1
    class: 10
    pipes:
      - endpoint: 0x02
        type: bulk
        max_packet: 512
alternates:
  - number: 1
    alternate: 1
    pipes:
      - endpoint: 0x02
      - endpoint: 0x82
        type: BULK
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, uint8(1), f.Value)
	assert.Equal(t, uint64(0xC0FFEE), f.Handle)
	require.Len(t, f.Interfaces, 2)
	require.Len(t, f.Alternates, 1)
	assert.Equal(t, uint8(0x81), f.Interfaces[0].Pipes[0].Endpoint)
}

func TestParseInvalidPipeType(t *testing.T) {
	_, err := Parse([]byte("interfaces:\n  - pipes:\n      - endpoint: 1\n        type: warp\n"))
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Interfaces, 2)

	_, err = Load(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}

func TestFixtureBuildsRegistry(t *testing.T) {
	f, err := Parse([]byte(doc))
	require.NoError(t, err)

	var desc devconf.ConfigurationDescriptor
	require.NoError(t, devconf.ParseConfigurationDescriptor(f.Descriptor(), &desc))
	assert.Equal(t, uint8(2), desc.NumInterfaces)
	assert.Equal(t, uint8(1), desc.ConfigurationValue)

	dc, err := devconf.Create(&desc, devconf.ConfigurationHandle(f.Handle), f.InterfaceInfos())
	require.NoError(t, err)
	defer dc.Destroy()

	pipe := dc.FindPipe(0x81)
	require.NotNil(t, pipe)
	assert.Equal(t, devconf.PipeTypeInterrupt, pipe.PipeType)
	assert.Equal(t, devconf.PipeHandle(0x200), pipe.Handle)
	assert.Equal(t, uint8(10), pipe.Interval)

	block, err := f.Alternate(1, 1)
	require.NoError(t, err)
	var alt devconf.InterfaceInfo
	require.NoError(t, devconf.ParseInterfaceInfo(block, &alt))
	require.NoError(t, dc.Update(&alt))

	assert.Equal(t, uint8(1), dc.FindInterface(1).AlternateSetting)
	require.NotNil(t, dc.FindPipe(0x82))
	assert.Equal(t, devconf.PipeTypeBulk, dc.FindPipe(0x82).PipeType)
}

func TestAlternateNotFound(t *testing.T) {
	f, err := Parse([]byte(doc))
	require.NoError(t, err)

	_, err = f.Alternate(1, 7)
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	block, err := f.Alternate(0, 0)
	require.NoError(t, err)
	assert.Len(t, block, devconf.InterfaceInfoSize(1))
}

func TestInterfaceInfoLength(t *testing.T) {
	intf := Interface{Number: 2, Pipes: []Pipe{{Endpoint: 0x83}, {Endpoint: 0x03}}}
	info := intf.Info()
	assert.Equal(t, uint16(devconf.InterfaceInfoSize(2)), info.Length)
	assert.Equal(t, devconf.PipeTypeBulk, info.Pipes[1].PipeType)
}
