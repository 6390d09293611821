package client

import (
	"fmt"

	"github.com/Anthya1104/dss/internal/contract"
	"github.com/Anthya1104/dss/internal/stripe"
	"github.com/Anthya1104/dss/internal/wire"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Copy runs the two-phase file copy: phase 1 asks the manager to pick a
// DSS, phase 2 stripes fileData across it and reports completion
// (user.py's handle_copy / copy_file_to_dss).
func (c *Client) Copy(fileName string, fileData []byte) error {
	resp, err := c.sendToManager("copy", contract.CopyParams{FileName: fileName, FileSize: len(fileData), Owner: c.Name})
	if err != nil {
		return fmt.Errorf("client: copy phase 1 failed: %w", err)
	}
	if !resp.Ok() {
		return fmt.Errorf("client: copy rejected: %s", resp.Message)
	}

	var layout contract.DSSLayout
	if err := wire.DecodePayload(resp.Data, &layout); err != nil {
		return err
	}

	logrus.Infof("user %s: copying %s (%d bytes) to DSS %s", c.Name, fileName, len(fileData), layout.DSSName)

	if err := c.writeFileToDSS(fileName, fileData, layout); err != nil {
		return fmt.Errorf("client: copy phase 2 failed: %w", err)
	}

	complete, err := c.sendToManager("copy-complete", contract.CopyCompleteParams{
		FileName: fileName, FileSize: len(fileData), Owner: c.Name, DSSName: layout.DSSName,
	})
	if err != nil {
		return fmt.Errorf("client: copy-complete failed: %w", err)
	}
	if !complete.Ok() {
		return fmt.Errorf("client: copy-complete rejected: %s", complete.Message)
	}
	return nil
}

// writeFileToDSS splits fileData into stripes, computes parity for each,
// and writes every stripe's blocks to their disks.
func (c *Client) writeFileToDSS(fileName string, fileData []byte, layout contract.DSSLayout) error {
	numStripes := stripe.StripeCount(len(fileData), layout.N, layout.StripingUnit)
	dataBytesPerStripe := (layout.N - 1) * layout.StripingUnit

	for s := 0; s < numStripes; s++ {
		start := s * dataBytesPerStripe
		end := start + dataBytesPerStripe
		if end > len(fileData) {
			end = len(fileData)
		}
		stripeData := fileData[start:end]

		dataBlocks := make([][]byte, layout.N-1)
		for i := 0; i < layout.N-1; i++ {
			blockStart := i * layout.StripingUnit
			blockEnd := blockStart + layout.StripingUnit
			if blockStart > len(stripeData) {
				blockStart = len(stripeData)
			}
			if blockEnd > len(stripeData) {
				blockEnd = len(stripeData)
			}
			dataBlocks[i] = stripe.Pad(stripeData[blockStart:blockEnd], layout.StripingUnit)
		}

		parityBlock, err := stripe.Parity(dataBlocks)
		if err != nil {
			return err
		}

		parityIdx := stripe.ParityIndex(s, layout.N)
		blocks := make([][]byte, layout.N)
		dataIdx := 0
		for disk := 0; disk < layout.N; disk++ {
			if disk == parityIdx {
				blocks[disk] = parityBlock
			} else {
				blocks[disk] = dataBlocks[dataIdx]
				dataIdx++
			}
		}

		if err := c.writeStripeToDisks(blocks, layout.Disks, layout.DSSName, fileName, s, parityIdx); err != nil {
			return fmt.Errorf("stripe %d: %w", s, err)
		}
		logrus.Debugf("user %s: stripe %d/%d written", c.Name, s+1, numStripes)
	}
	return nil
}

// writeStripeToDisks fans out one write-block request per disk and waits
// for every disk to acknowledge (user.py's write_stripe_to_disks).
func (c *Client) writeStripeToDisks(blocks [][]byte, disks []contract.DiskContact, dssName, fileName string, stripeNum, parityIdx int) error {
	var g errgroup.Group
	for i := range disks {
		i := i
		g.Go(func() error {
			blockType := contract.BlockTypeData
			if i == parityIdx {
				blockType = contract.BlockTypeParity
			}
			req, err := wire.NewRequest("write-block", contract.WriteBlockParams{
				DSSName: dssName, FileName: fileName, StripeNum: stripeNum,
				BlockType: blockType, BlockData: wire.EncodeBlock(blocks[i]),
			}, c.Name)
			if err != nil {
				return err
			}
			resp, err := wire.SendStreamRequest(wire.Addr{IPv4: disks[i].IPv4Addr, Port: disks[i].CPort}, req)
			if err != nil {
				return fmt.Errorf("disk %s: %w", disks[i].DiskName, err)
			}
			if !resp.Ok() {
				return fmt.Errorf("disk %s rejected write: %s", disks[i].DiskName, resp.Message)
			}
			return nil
		})
	}
	return g.Wait()
}
