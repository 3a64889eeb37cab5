package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/linjuya-lu/serial_tester_go/internal/serial"
)

func newListCmd(list serial.Lister) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "列出可用串口",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := list()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ports) == 0 {
				fmt.Fprintln(out, "未发现可用串口！请检查连接。")
				return nil
			}
			for i, p := range ports {
				fmt.Fprintf(out, "%d: %s\n", i, p)
			}
			return nil
		},
	}
}
