package client

import (
	"fmt"

	"github.com/Anthya1104/dss/internal/contract"
	"github.com/Anthya1104/dss/internal/stripe"
	"github.com/Anthya1104/dss/internal/wire"
	"github.com/sirupsen/logrus"
)

// DiskFailure runs the two-phase disk-failure simulation: phase 1 asks the
// manager for the DSS layout, phase 2 picks a random member disk, fails it,
// and recovers every file's stripe 0 onto it by XOR-reconstructing from the
// remaining disks (user.py's handle_disk_failure / simulate_disk_failure /
// recover_failed_disk). Only stripe 0 is recovered per file — a limitation
// user.py itself carries ("most files fit in one stripe").
func (c *Client) DiskFailure(dssName string) error {
	resp, err := c.sendToManager("disk-failure", contract.DiskFailureParams{DSSName: dssName})
	if err != nil {
		return fmt.Errorf("client: disk-failure phase 1 failed: %w", err)
	}
	if !resp.Ok() {
		return fmt.Errorf("client: disk-failure rejected: %s", resp.Message)
	}

	var layout contract.DSSLayout
	if err := wire.DecodePayload(resp.Data, &layout); err != nil {
		return err
	}

	if err := c.simulateDiskFailure(layout); err != nil {
		return fmt.Errorf("client: disk-failure phase 2 failed: %w", err)
	}

	complete, err := c.sendToManager("recovery-complete", contract.RecoveryCompleteParams{DSSName: dssName})
	if err != nil {
		return fmt.Errorf("client: recovery-complete failed: %w", err)
	}
	if !complete.Ok() {
		return fmt.Errorf("client: recovery-complete rejected: %s", complete.Message)
	}
	return nil
}

func (c *Client) simulateDiskFailure(layout contract.DSSLayout) error {
	failedIdx := c.RNG.Intn(layout.N)
	failedDisk := layout.Disks[failedIdx]

	logrus.Infof("user %s: selected disk %d (%s) for failure on DSS %s", c.Name, failedIdx, failedDisk.DiskName, layout.DSSName)

	if err := c.sendFailToDisk(failedDisk, layout.DSSName); err != nil {
		return err
	}
	logrus.Infof("user %s: disk %s failed", c.Name, failedDisk.DiskName)

	if err := c.recoverFailedDisk(failedIdx, layout); err != nil {
		return err
	}
	logrus.Infof("user %s: disk %s recovered", c.Name, failedDisk.DiskName)
	return nil
}

func (c *Client) sendFailToDisk(disk contract.DiskContact, dssName string) error {
	req, err := wire.NewRequest("fail", contract.FailParams{DSSName: dssName}, c.Name)
	if err != nil {
		return err
	}
	resp, err := wire.SendStreamRequest(wire.Addr{IPv4: disk.IPv4Addr, Port: disk.CPort}, req)
	if err != nil {
		return fmt.Errorf("disk %s: %w", disk.DiskName, err)
	}
	if !resp.Ok() {
		return fmt.Errorf("disk %s rejected fail: %s", disk.DiskName, resp.Message)
	}
	return nil
}

// recoverFailedDisk reconstructs stripe 0 of every file on the DSS onto
// the failed disk's position by XORing the remaining disks' blocks.
func (c *Client) recoverFailedDisk(failedIdx int, layout contract.DSSLayout) error {
	listing, err := c.Ls()
	if err != nil {
		return err
	}

	var fileNames []string
	for _, dss := range listing.DSSes {
		if dss.DSSName == layout.DSSName {
			for _, f := range dss.Files {
				fileNames = append(fileNames, f.FileName)
			}
			break
		}
	}
	if len(fileNames) == 0 {
		logrus.Infof("user %s: no files found on DSS %s to recover", c.Name, layout.DSSName)
		return nil
	}

	remaining := make([]contract.DiskContact, 0, len(layout.Disks)-1)
	for i, d := range layout.Disks {
		if i != failedIdx {
			remaining = append(remaining, d)
		}
	}

	codec, err := stripe.NewCodec(layout.N, layout.StripingUnit)
	if err != nil {
		return err
	}

	const stripeNum = 0
	parityIdx := stripe.ParityIndex(stripeNum, layout.N)

	for _, fileName := range fileNames {
		blocks, _, err := c.readStripeFromDisks(remaining, layout.DSSName, fileName, stripeNum)
		if err != nil {
			return fmt.Errorf("recovering %s: %w", fileName, err)
		}

		diskOrderShards := make([][]byte, layout.N)
		ri := 0
		for d := 0; d < layout.N; d++ {
			if d == failedIdx {
				continue
			}
			diskOrderShards[d] = blocks[ri]
			ri++
		}

		reconstructed, err := codec.ReconstructBlock(diskOrderShards, failedIdx, parityIdx)
		if err != nil {
			return fmt.Errorf("recovering %s: %w", fileName, err)
		}

		blockType := contract.BlockTypeData
		if failedIdx == parityIdx {
			blockType = contract.BlockTypeParity
		}

		if err := c.writeRecoveredBlock(layout.Disks[failedIdx], layout.DSSName, fileName, stripeNum, reconstructed, blockType); err != nil {
			return fmt.Errorf("recovering %s: %w", fileName, err)
		}
		logrus.Infof("user %s: recovered %s block for %s stripe %d", c.Name, blockType, fileName, stripeNum)
	}
	return nil
}

func (c *Client) writeRecoveredBlock(disk contract.DiskContact, dssName, fileName string, stripeNum int, block []byte, blockType contract.BlockType) error {
	req, err := wire.NewRequest("recovery-write", contract.RecoveryWriteParams{
		DSSName: dssName, FileName: fileName, StripeNum: stripeNum,
		BlockType: blockType, BlockData: wire.EncodeBlock(block),
	}, c.Name)
	if err != nil {
		return err
	}
	resp, err := wire.SendStreamRequest(wire.Addr{IPv4: disk.IPv4Addr, Port: disk.CPort}, req)
	if err != nil {
		return fmt.Errorf("disk %s: %w", disk.DiskName, err)
	}
	if !resp.Ok() {
		return fmt.Errorf("disk %s rejected recovery-write: %s", disk.DiskName, resp.Message)
	}
	return nil
}
