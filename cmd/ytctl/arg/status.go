package arg

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/da33dut/yourtime/internal/ipc"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"s"},
	Short:   "Show the daemon's enforcement state and remaining time",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		conn, obj := manager()
		defer conn.Close()

		var status string
		if err := obj.Call(ipc.InterfaceName+".Status", 0).Store(&status); err != nil {
			log.Fatal("Failed to call method:", err)
		}
		var remaining int64
		if err := obj.Call(ipc.InterfaceName+".Remaining", 0).Store(&remaining); err != nil {
			log.Fatal("Failed to call method:", err)
		}

		fmt.Println(status)
		fmt.Println("Remaining:", formatRemaining(remaining))
	},
}

// formatRemaining renders seconds as "[Xd] [Xh] [Xm] SSs", or the infinity
// sign when no limit applies.
func formatRemaining(sec int64) string {
	if sec < 0 {
		return "∞"
	}
	out := ""
	if d := sec / 86400; d > 0 {
		out += fmt.Sprintf("%dd ", d)
	}
	if h := sec % 86400 / 3600; h > 0 {
		out += fmt.Sprintf("%dh ", h)
	}
	if m := sec % 3600 / 60; m > 0 {
		out += fmt.Sprintf("%dm ", m)
	}
	return out + fmt.Sprintf("%02ds", sec%60)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
