package protocol

import (
	"fmt"
	"strings"
)

// Parse reads a single text request:
//
//	GET <key>
//	PUT <key> <value>
//	DELETE <key>
//	PRINT
//
// The verb is case-insensitive and fields are separated by whitespace.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty request", ErrInvalidRequest)
	}

	verb, args := strings.ToUpper(fields[0]), fields[1:]
	var cmd Command
	switch verb {
	case "GET":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%w: usage: GET <key>", ErrInvalidRequest)
		}
		cmd = Get(args[0])
	case "PUT":
		if len(args) != 2 {
			return Command{}, fmt.Errorf("%w: usage: PUT <key> <value>", ErrInvalidRequest)
		}
		cmd = Put(args[0], args[1])
	case "DELETE", "DEL":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%w: usage: DELETE <key>", ErrInvalidRequest)
		}
		cmd = Delete(args[0])
	case "PRINT":
		if len(args) != 0 {
			return Command{}, fmt.Errorf("%w: usage: PRINT", ErrInvalidRequest)
		}
		cmd = Print()
	default:
		return Command{}, fmt.Errorf("%w: unknown command %q", ErrInvalidRequest, fields[0])
	}
	return cmd, cmd.Validate()
}
