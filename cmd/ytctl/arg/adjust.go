package arg

import (
	"fmt"
	"log"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/da33dut/yourtime/internal/ipc"
)

var extendCmd = &cobra.Command{
	Use:     "extend <seconds>",
	Aliases: []string{"e"},
	Short:   "Add seconds to the remaining time",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		adjust(".Extend", args[0])
	},
}

var reduceCmd = &cobra.Command{
	Use:     "reduce <seconds>",
	Aliases: []string{"r"},
	Short:   "Subtract seconds from the remaining time",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		adjust(".Reduce", args[0])
	},
}

func adjust(method, secArg string) {
	sec, err := strconv.ParseInt(secArg, 10, 64)
	if err != nil {
		log.Fatal("Invalid seconds value:", secArg)
	}

	conn, obj := manager()
	defer conn.Close()

	if err := obj.Call(ipc.InterfaceName+method, 0, sec).Store(); err != nil {
		log.Fatal("Failed to call method:", err)
	}
	fmt.Printf("Adjusted remaining time by %s seconds\n", secArg)
}

func init() {
	rootCmd.AddCommand(extendCmd)
	rootCmd.AddCommand(reduceCmd)
}
