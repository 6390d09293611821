package cli

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Anthya1104/dss/internal/client"
	"github.com/Anthya1104/dss/internal/config"
	"github.com/Anthya1104/dss/internal/wire"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var userRootCmd = &cobra.Command{
	Use:   "user <name> <manager_ip> <manager_port> <m_port> <c_port>",
	Short: "Run a DSS user process and its interactive command shell",
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

		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		c := client.New(name, wire.Addr{IPv4: managerIP, Port: managerPort}, rng)

		if err := c.RegisterWithManager("127.0.0.1", mPort, cPort); err != nil {
			logrus.Fatalf("user %s: %v", name, err)
		}

		runShell(c)
		return nil
	},
}

var userVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version info",
	Run: func(cmd *cobra.Command, args []string) {
		logrus.Infof("Version: %s", config.Version)
	},
}

// ExecuteUser runs the user binary's command tree.
func ExecuteUser() error {
	userRootCmd.AddCommand(userVersionCmd)
	return userRootCmd.Execute()
}

// runShell is the interactive command loop (user.py's command_interface),
// reading whitespace-separated commands from stdin until "quit" or EOF.
func runShell(c *client.Client) {
	fmt.Printf("User %s ready. Available commands:\n", c.Name)
	fmt.Println("  configure-dss <dss_name> <n> <striping_unit>")
	fmt.Println("  ls")
	fmt.Println("  copy <file_path>")
	fmt.Println("  read <dss_name> <file_name> [error_prob]")
	fmt.Println("  disk-failure <dss_name>")
	fmt.Println("  decommission-dss <dss_name>")
	fmt.Println("  deregister-user")
	fmt.Println("  quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("%s> ", c.Name)
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)

		switch {
		case strings.EqualFold(line, "quit"):
			return
		case parts[0] == "configure-dss":
			handleConfigureDSS(c, parts)
		case line == "ls":
			handleLs(c)
		case parts[0] == "copy":
			handleCopy(c, parts)
		case parts[0] == "read":
			handleRead(c, parts)
		case parts[0] == "disk-failure":
			handleDiskFailure(c, parts)
		case parts[0] == "decommission-dss":
			handleDecommissionDSS(c, parts)
		case line == "deregister-user":
			if err := c.DeregisterUser(); err != nil {
				fmt.Println(err)
				continue
			}
			return
		default:
			fmt.Printf("Unknown command: %s\n", line)
		}
	}
}

func handleConfigureDSS(c *client.Client, parts []string) {
	if len(parts) != 4 {
		fmt.Println("Usage: configure-dss <dss_name> <n> <striping_unit>")
		return
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil {
		fmt.Println("Error: n and striping_unit must be integers")
		return
	}
	unit, err := strconv.Atoi(parts[3])
	if err != nil {
		fmt.Println("Error: n and striping_unit must be integers")
		return
	}
	if err := c.ConfigureDSS(parts[1], n, unit); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("DSS configuration: SUCCESS")
}

func handleLs(c *client.Client) {
	data, err := c.Ls()
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Print(client.RenderListing(data))
}

func handleCopy(c *client.Client, parts []string) {
	if len(parts) != 2 {
		fmt.Println("Usage: copy <file_path>")
		return
	}
	filePath := parts[1]
	fileData, err := os.ReadFile(filePath)
	if err != nil {
		fmt.Printf("Error: file %s does not exist\n", filePath)
		return
	}
	fileName := filePath
	if idx := strings.LastIndex(filePath, "/"); idx >= 0 {
		fileName = filePath[idx+1:]
	}
	if err := c.Copy(fileName, fileData); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("File %s successfully copied\n", fileName)
}

func handleRead(c *client.Client, parts []string) {
	if len(parts) < 3 || len(parts) > 4 {
		fmt.Println("Usage: read <dss_name> <file_name> [error_prob]")
		return
	}
	dssName, fileName := parts[1], parts[2]
	errorProb := config.DefaultReadErrorProb
	if len(parts) == 4 {
		p, err := strconv.Atoi(parts[3])
		if err != nil || p < 0 || p > 100 {
			fmt.Println("Error: error_prob must be an integer between 0 and 100")
			return
		}
		errorProb = p
	}

	output, err := c.ReadFile(dssName, fileName, errorProb)
	if err != nil {
		fmt.Println(err)
		return
	}

	outputPath := "read_" + fileName
	if err := os.WriteFile(outputPath, output, 0o644); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("File %s successfully read from DSS %s, written to %s\n", fileName, dssName, outputPath)
}

func handleDiskFailure(c *client.Client, parts []string) {
	if len(parts) != 2 {
		fmt.Println("Usage: disk-failure <dss_name>")
		return
	}
	if err := c.DiskFailure(parts[1]); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("Disk failure simulation completed for DSS %s\n", parts[1])
}

func handleDecommissionDSS(c *client.Client, parts []string) {
	if len(parts) != 2 {
		fmt.Println("Usage: decommission-dss <dss_name>")
		return
	}
	if err := c.DecommissionDSS(parts[1]); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("DSS %s successfully decommissioned\n", parts[1])
}
