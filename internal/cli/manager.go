// Package cli wires each process's cobra command tree (manager, disk,
// user), the same way internal/cobra built the original single-binary
// tree, generalized to three binaries with positional arguments instead of
// flags (spec.md §6's manager/disk/user invocations take positional args,
// not --flags).
package cli

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/Anthya1104/dss/internal/config"
	"github.com/Anthya1104/dss/internal/manager"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var managerRootCmd = &cobra.Command{
	Use:   "manager <port>",
	Short: "Run the DSS manager process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}

		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		m, err := manager.NewManager(port, rng)
		if err != nil {
			return err
		}

		logrus.Infof("manager: listening on port %d", port)
		m.Serve()
		return nil
	},
}

var managerVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version info",
	Run: func(cmd *cobra.Command, args []string) {
		logrus.Infof("Version: %s", config.Version)
	},
}

// ExecuteManager runs the manager binary's command tree.
func ExecuteManager() error {
	managerRootCmd.AddCommand(managerVersionCmd)
	return managerRootCmd.Execute()
}
