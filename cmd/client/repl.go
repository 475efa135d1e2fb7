package client

import (
	"bufio"
	"errors"
	"fmt"
	"github.com/panunburn/kv/lib/protocol"
	"github.com/panunburn/kv/lib/replication"
	"github.com/panunburn/kv/rpc/client"
	"github.com/spf13/cobra"
	"io"
	"strings"
)

const prompt = "QUERY> "

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive shell reading GET, PUT, DELETE and PRINT requests",
	Long: `Interactive shell reading one request per line:

  GET <key>
  PUT <key> <value>
  DELETE <key>
  PRINT

Type exit to leave. When the current node is unreachable the shell offers to
switch to another endpoint.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return newRepl(cmd.InOrStdin(), cmd.OutOrStdout(), clientConfig.Transport.Endpoints, connectGateway).run()
	},
}

// repl is a line based session bound to one endpoint at a time
type repl struct {
	in        *bufio.Scanner
	out       io.Writer
	endpoints []string
	connect   func(endpoints ...string) (client.IGatewayClient, error)

	endpoint string
	gateway  client.IGatewayClient
}

func newRepl(in io.Reader, out io.Writer, endpoints []string, connect func(...string) (client.IGatewayClient, error)) *repl {
	return &repl{
		in:        bufio.NewScanner(in),
		out:       out,
		endpoints: endpoints,
		connect:   connect,
	}
}

func (r *repl) run() error {
	defer r.disconnect()

	if !r.switchTo(r.endpoints[0]) && !r.chooseEndpoint() {
		return nil
	}

	for {
		fmt.Fprint(r.out, prompt)
		line, ok := r.readLine()
		if !ok {
			return r.in.Err()
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		command, err := protocol.Parse(line)
		if err != nil {
			fmt.Fprintln(r.out, err)
			continue
		}

		res, err := r.gateway.Process(command)
		switch {
		case err == nil:
			fmt.Fprintln(r.out, res.Describe(command))
		case errors.Is(err, replication.ErrTransactionAbort):
			fmt.Fprintln(r.out, "aborted, the key is being read concurrently. Try again")
		case errors.Is(err, replication.ErrUnreachable):
			fmt.Fprintf(r.out, "%s is unreachable: %v\n", r.endpoint, err)
			if !r.chooseEndpoint() {
				return nil
			}
		default:
			fmt.Fprintln(r.out, "error:", err)
		}
	}
}

// chooseEndpoint asks for another endpoint until one connects. The next
// configured endpoint is offered as the default. It returns false if the
// user gives up.
func (r *repl) chooseEndpoint() bool {
	for {
		suggestion := r.nextEndpoint()
		if suggestion != "" {
			fmt.Fprintf(r.out, "switch to endpoint [%s] (q to quit): ", suggestion)
		} else {
			fmt.Fprint(r.out, "switch to endpoint (empty to quit): ")
		}

		line, ok := r.readLine()
		if !ok || line == "q" || (line == "" && suggestion == "") {
			return false
		}
		if line == "" {
			line = suggestion
		}
		if r.switchTo(line) {
			return true
		}
	}
}

// switchTo replaces the gateway connection, it reports whether the endpoint connected
func (r *repl) switchTo(endpoint string) bool {
	r.endpoint = endpoint
	gateway, err := r.connect(endpoint)
	if err != nil {
		fmt.Fprintf(r.out, "cannot connect to %s: %v\n", endpoint, err)
		return false
	}
	r.disconnect()
	r.gateway = gateway
	fmt.Fprintf(r.out, "connected to %s\n", endpoint)
	return true
}

func (r *repl) disconnect() {
	if r.gateway != nil {
		_ = r.gateway.Close()
		r.gateway = nil
	}
}

// nextEndpoint returns the configured endpoint after the current one
func (r *repl) nextEndpoint() string {
	if len(r.endpoints) < 2 {
		return ""
	}
	for i, e := range r.endpoints {
		if e == r.endpoint {
			return r.endpoints[(i+1)%len(r.endpoints)]
		}
	}
	return r.endpoints[0]
}

func (r *repl) readLine() (string, bool) {
	if !r.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(r.in.Text()), true
}
