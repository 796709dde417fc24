package arg

import (
	"fmt"
	"log"
	"os"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/da33dut/yourtime/internal/ipc"
)

var rootCmd = &cobra.Command{
	Use:   "ytctl",
	Short: "ytctl is the command line tool for the YourTime daemon",
	Long: `ytctl talks to the yourtimed enforcement daemon over D-Bus.
			You can use it to query remaining time, adjust the counter, and more.`,
	Run: func(cmd *cobra.Command, args []string) {
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// manager connects to the session bus and returns the daemon's IPC object.
// The caller must Close the returned connection.
func manager() (*dbus.Conn, dbus.BusObject) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		log.Fatal("Failed to connect to session bus:", err)
	}
	return conn, conn.Object(ipc.ServiceName, dbus.ObjectPath(ipc.ObjectPath))
}
