package pipeline

import "github.com/LdDl/refdist-go/refdist"

// Command is an operation requested by the command surface
type Command uint8

const (
	CommandCalibrate Command = iota + 1
	CommandReset
	CommandQuit
)

func (c Command) String() string {
	switch c {
	case CommandCalibrate:
		return "calibrate"
	case CommandReset:
		return "reset"
	case CommandQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// ParseCommand maps command name to Command
func ParseCommand(name string) (Command, bool) {
	for _, cmd := range []Command{CommandCalibrate, CommandReset, CommandQuit} {
		if cmd.String() == name {
			return cmd, true
		}
	}
	return 0, false
}

// CommandFromKey maps keyboard key code (as returned by gocv.Window.WaitKey) to Command
func CommandFromKey(key int) (Command, bool) {
	switch key & 0xFF {
	case 'c':
		return CommandCalibrate, true
	case 'r':
		return CommandReset, true
	case 'q', 27:
		return CommandQuit, true
	default:
		return 0, false
	}
}

// CommandResult is the outcome of an executed command
type CommandResult struct {
	Command Command
	Err     error
	// Scale after the command was executed
	Scale refdist.CalibrationScale
}

type request struct {
	cmd   Command
	reply chan CommandResult
}
