package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pixeld/pkg/client"
)

// ClientContextKey is used for storing the client in context for commands.
// The root command's pre-run stores one there unless a caller already has.
var ClientContextKey = &struct{}{}

// clientFrom returns the client stored on the command's context.
func clientFrom(cmd *cobra.Command) (client.ClientInterface, error) {
	if ctx := cmd.Context(); ctx != nil {
		if c, ok := ctx.Value(ClientContextKey).(client.ClientInterface); ok {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no pixeld client configured")
}
