package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/yifeimfd/usbip-win/internal/fixture"
	"github.com/yifeimfd/usbip-win/internal/usbid"
	"github.com/yifeimfd/usbip-win/pkg"
	"github.com/yifeimfd/usbip-win/stub"
	"github.com/yifeimfd/usbip-win/stub/devconf"
)

// shell drives a stub device from typed commands.
type shell struct {
	dev     *stub.Device
	fixture *fixture.Fixture
	pool    devconf.Pool
	ids     *usbid.Database
}

func newShell(dev *stub.Device, f *fixture.Fixture, pool devconf.Pool, ids *usbid.Database) *shell {
	if ids == nil {
		ids = usbid.NewWithPaths(nil)
	}
	return &shell{dev: dev, fixture: f, pool: pool, ids: ids}
}

// run reads commands until EOF or "quit".
func (s *shell) run() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "devconf> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("apply"),
			readline.PcItem("intf"),
			readline.PcItem("pipe"),
			readline.PcItem("alt"),
			readline.PcItem("dump"),
			readline.PcItem("pool"),
			readline.PcItem("teardown"),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	s.help(rl.Stdout())
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			return nil
		}
		if s.exec(line, rl.Stdout()) {
			return nil
		}
	}
}

// exec runs one command line, writing results to out. It reports whether
// the shell should exit.
func (s *shell) exec(line string, out io.Writer) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		s.help(out)
	case "apply", "a":
		err = s.cmdApply(out)
	case "intf", "i":
		err = s.cmdIntf(out, args)
	case "pipe", "p":
		err = s.cmdPipe(out, args)
	case "alt":
		err = s.cmdAlt(out, args)
	case "dump", "d":
		err = s.cmdDump(out)
	case "pool":
		s.cmdPool(out)
	case "teardown", "t":
		s.dev.Deconfigure()
		fmt.Fprintln(out, "configuration released")
	case "quit", "exit", "q":
		s.dev.Deconfigure()
		return true
	default:
		fmt.Fprintf(out, "unknown command %q (try help)\n", cmd)
	}
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		pkg.LogDebug(pkg.ComponentShell, "command failed", "command", cmd, "error", err)
	}
	return false
}

func (s *shell) help(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  apply             apply the fixture configuration")
	fmt.Fprintln(out, "  intf <num>        show an interface")
	fmt.Fprintln(out, "  pipe <epaddr>     show the pipe of an endpoint (hex accepted)")
	fmt.Fprintln(out, "  alt <num> <alt>   select an alternate setting from the fixture")
	fmt.Fprintln(out, "  dump              show the whole configuration")
	fmt.Fprintln(out, "  pool              show pool usage")
	fmt.Fprintln(out, "  teardown          release the configuration")
	fmt.Fprintln(out, "  quit              exit")
}

func (s *shell) cmdApply(out io.Writer) error {
	if s.fixture == nil {
		return fmt.Errorf("no fixture loaded: %w", pkg.ErrInvalidParameter)
	}
	err := s.dev.SelectConfiguration(s.fixture.Descriptor(),
		devconf.ConfigurationHandle(s.fixture.Handle), s.fixture.InterfaceInfos())
	if err != nil {
		return err
	}
	value, _ := s.dev.ConfigurationValue()
	fmt.Fprintf(out, "configuration %d applied\n", value)
	return nil
}

func (s *shell) cmdIntf(out io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: intf <num>: %w", pkg.ErrInvalidParameter)
	}
	num, err := parseByte(args[0])
	if err != nil {
		return err
	}
	info, err := s.dev.Interface(num)
	if err != nil {
		return err
	}
	s.printInterface(out, info)
	return nil
}

func (s *shell) cmdPipe(out io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: pipe <epaddr>: %w", pkg.ErrInvalidParameter)
	}
	ep, err := parseByte(args[0])
	if err != nil {
		return err
	}
	pipe, err := s.dev.Pipe(ep)
	if err != nil {
		return err
	}
	printPipe(out, &pipe)
	return nil
}

func (s *shell) cmdAlt(out io.Writer, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: alt <num> <alt>: %w", pkg.ErrInvalidParameter)
	}
	if s.fixture == nil {
		return fmt.Errorf("no fixture loaded: %w", pkg.ErrInvalidParameter)
	}
	num, err := parseByte(args[0])
	if err != nil {
		return err
	}
	alt, err := parseByte(args[1])
	if err != nil {
		return err
	}
	block, err := s.fixture.Alternate(num, alt)
	if err != nil {
		return err
	}
	if err := s.dev.SelectInterface(block); err != nil {
		return err
	}
	fmt.Fprintf(out, "interface %d now at alternate setting %d\n", num, alt)
	return nil
}

func (s *shell) cmdDump(out io.Writer) error {
	return s.dev.View(func(dc *devconf.Devconf) {
		fmt.Fprintf(out, "configuration %d handle=0x%X interfaces=%d id=%s\n",
			dc.ConfigurationValue, uint64(dc.Handle), dc.NumInterfaces(), dc.ID)
		if d := devconf.DescribeDevconf(dc); d != "" {
			fmt.Fprintf(out, "  [%s]\n", d)
		}
		for _, info := range dc.Interfaces() {
			s.printInterface(out, info)
		}
	})
}

func (s *shell) cmdPool(out io.Writer) {
	qp, ok := s.pool.(*devconf.QuotaPool)
	if !ok {
		fmt.Fprintln(out, "pool: unbounded")
		return
	}
	fmt.Fprintf(out, "pool: in_use=%d peak=%d limit=%d failures=%d\n",
		qp.InUse(), qp.Peak(), qp.Limit(), qp.Failures())
}

func (s *shell) printInterface(out io.Writer, info *devconf.InterfaceInfo) {
	fmt.Fprintf(out, "  interface %d alt %d class=0x%02X/0x%02X/0x%02X handle=0x%X pipes=%d\n",
		info.InterfaceNumber, info.AlternateSetting,
		info.Class, info.SubClass, info.Protocol,
		uint64(info.Handle), info.NumPipes())
	if name := s.ids.Describe(info.Class, info.SubClass, info.Protocol); name != "" {
		fmt.Fprintf(out, "    %s\n", name)
	}
	if d := devconf.DescribeInterface(info); d != "" {
		fmt.Fprintf(out, "    [%s]\n", d)
	}
	for i := range info.Pipes {
		printPipe(out, &info.Pipes[i])
	}
}

func printPipe(out io.Writer, p *devconf.PipeInfo) {
	fmt.Fprintf(out, "    pipe 0x%02X type=%d maxpkt=%d interval=%d handle=0x%X maxxfer=%d flags=0x%X\n",
		p.EndpointAddress, p.PipeType, p.MaximumPacketSize, p.Interval,
		uint64(p.Handle), p.MaximumTransferSize, p.PipeFlags)
	if d := devconf.DescribePipe(p); d != "" {
		fmt.Fprintf(out, "      [%s]\n", d)
	}
}

// parseByte accepts decimal or 0x-prefixed hexadecimal.
func parseByte(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, pkg.ErrInvalidParameter)
	}
	return uint8(v), nil
}
