package arg

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/da33dut/yourtime/internal/ipc"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore today's full time budget",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		conn, obj := manager()
		defer conn.Close()

		if err := obj.Call(ipc.InterfaceName+".Reset", 0).Store(); err != nil {
			log.Fatal("Failed to call method:", err)
		}
		fmt.Println("Timer reset")
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
