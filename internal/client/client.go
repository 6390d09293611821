// Package client implements the user process: manager registration, the
// command-line operations (configure-dss, ls, copy, read, disk-failure,
// decommission-dss, deregister-user), and the fan-out disk I/O engine that
// backs copy and read (user.py's User class).
package client

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/Anthya1104/dss/internal/contract"
	"github.com/Anthya1104/dss/internal/wire"
	"github.com/sirupsen/logrus"
)

// Client is one user process's state: its identity and the manager it
// talks to. Disk contacts are never cached between operations — each
// operation fetches a fresh DSS layout from the manager, matching user.py's
// two-phase request/perform pattern.
type Client struct {
	Name        string
	ManagerAddr wire.Addr
	RNG         *rand.Rand
}

// New builds a client with its own seeded RNG, used for error injection in
// ReadFile and random disk selection in DiskFailure.
func New(name string, managerAddr wire.Addr, rng *rand.Rand) *Client {
	return &Client{Name: name, ManagerAddr: managerAddr, RNG: rng}
}

// sendToManager marshals command/params as a Request and waits for the
// manager's Response (user.py's send_to_manager).
func (c *Client) sendToManager(command string, params interface{}) (*wire.Response, error) {
	req, err := wire.NewRequest(command, params, c.Name)
	if err != nil {
		return nil, err
	}
	return wire.SendUDPRequest(c.ManagerAddr, req)
}

// RegisterWithManager registers this user (user.py's register_with_manager).
func (c *Client) RegisterWithManager(ipv4 string, mPort, cPort int) error {
	resp, err := c.sendToManager("register-user", contract.RegisterUserParams{
		UserName: c.Name, IPv4Addr: ipv4, MPort: mPort, CPort: cPort,
	})
	if err != nil {
		return fmt.Errorf("client: registration failed: %w", err)
	}
	if !resp.Ok() {
		return fmt.Errorf("client: registration rejected: %s", resp.Message)
	}
	logrus.Infof("user %s: registered with manager", c.Name)
	return nil
}

// DeregisterUser deregisters this user.
func (c *Client) DeregisterUser() error {
	resp, err := c.sendToManager("deregister-user", contract.DeregisterUserParams{UserName: c.Name})
	if err != nil {
		return fmt.Errorf("client: deregistration failed: %w", err)
	}
	if !resp.Ok() {
		return fmt.Errorf("client: deregistration rejected: %s", resp.Message)
	}
	return nil
}

// ConfigureDSS asks the manager to provision a new DSS.
func (c *Client) ConfigureDSS(dssName string, n, stripingUnit int) error {
	resp, err := c.sendToManager("configure-dss", contract.ConfigureDSSParams{
		DSSName: dssName, N: n, StripingUnit: stripingUnit, UserName: c.Name,
	})
	if err != nil {
		return fmt.Errorf("client: configure-dss failed: %w", err)
	}
	if !resp.Ok() {
		return fmt.Errorf("client: configure-dss rejected: %s", resp.Message)
	}
	return nil
}

// Ls fetches the full DSS/file directory from the manager.
func (c *Client) Ls() (*contract.ListFilesData, error) {
	resp, err := c.sendToManager("ls", contract.ListFilesParams{UserName: c.Name})
	if err != nil {
		return nil, fmt.Errorf("client: ls failed: %w", err)
	}
	if !resp.Ok() {
		return nil, fmt.Errorf("client: ls rejected: %s", resp.Message)
	}
	var data contract.ListFilesData
	if err := wire.DecodePayload(resp.Data, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecommissionDSS runs the two-phase decommission conversation with the
// manager. The disk-side teardown has no wire command of its own — member
// disks are not contacted and keep any blocks they hold for that DSS — so
// phase 2 is a fixed pause before confirming completion, matching user.py's
// handle_decommission_dss.
func (c *Client) DecommissionDSS(dssName string) error {
	resp, err := c.sendToManager("decommission-dss", contract.DecommissionDSSParams{DSSName: dssName})
	if err != nil {
		return fmt.Errorf("client: decommission-dss failed: %w", err)
	}
	if !resp.Ok() {
		return fmt.Errorf("client: decommission-dss rejected: %s", resp.Message)
	}

	logrus.Infof("user %s: decommissioning DSS %s", c.Name, dssName)
	time.Sleep(time.Second)

	complete, err := c.sendToManager("decommission-complete", contract.DecommissionCompleteParams{DSSName: dssName})
	if err != nil {
		return fmt.Errorf("client: decommission-complete failed: %w", err)
	}
	if !complete.Ok() {
		return fmt.Errorf("client: decommission-complete rejected: %s", complete.Message)
	}
	return nil
}
