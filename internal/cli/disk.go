package cli

import (
	"strconv"

	"github.com/Anthya1104/dss/internal/config"
	"github.com/Anthya1104/dss/internal/diskserver"
	"github.com/Anthya1104/dss/internal/wire"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var diskRootCmd = &cobra.Command{
	Use:   "disk <name> <manager_ip> <manager_port> <m_port> <c_port>",
	Short: "Run a DSS disk process",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		managerIP := args[1]
		managerPort, err := strconv.Atoi(args[2])
		if err != nil {
			return err
		}
		mPort, err := strconv.Atoi(args[3])
		if err != nil {
			return err
		}
		cPort, err := strconv.Atoi(args[4])
		if err != nil {
			return err
		}

		srv, err := diskserver.NewServer(name, mPort, cPort)
		if err != nil {
			return err
		}

		go srv.ServeManagement()
		go srv.ServeCommands()

		resp, err := diskserver.RegisterWithManager(wire.Addr{IPv4: managerIP, Port: managerPort}, name, "127.0.0.1", mPort, cPort)
		if err != nil {
			logrus.Fatalf("disk %s: registration failed: %v", name, err)
		}
		if !resp.Ok() {
			logrus.Fatalf("disk %s: registration rejected: %s", name, resp.Message)
		}
		logrus.Infof("disk %s: registered, listening on m_port=%d c_port=%d", name, mPort, cPort)

		select {}
	},
}

var diskVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version info",
	Run: func(cmd *cobra.Command, args []string) {
		logrus.Infof("Version: %s", config.Version)
	},
}

// ExecuteDisk runs the disk binary's command tree.
func ExecuteDisk() error {
	diskRootCmd.AddCommand(diskVersionCmd)
	return diskRootCmd.Execute()
}
