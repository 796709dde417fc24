package arg

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/da33dut/yourtime/internal/ipc"
)

var unlockCmd = &cobra.Command{
	Use:     "unlock",
	Aliases: []string{"u"},
	Short:   "Unlock the settings gate with the configured password",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(os.Stderr, "Password: ")
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			log.Fatal("Failed to read password:", err)
		}

		conn, obj := manager()
		defer conn.Close()

		var ok bool
		if err := obj.Call(ipc.InterfaceName+".Unlock", 0, string(pw)).Store(&ok); err != nil {
			log.Fatal("Failed to call method:", err)
		}
		if !ok {
			fmt.Println("Wrong password")
			os.Exit(1)
		}
		fmt.Println("Unlocked")
	},
}

func init() {
	rootCmd.AddCommand(unlockCmd)
}
