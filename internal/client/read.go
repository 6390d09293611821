package client

import (
	"fmt"

	"github.com/Anthya1104/dss/internal/config"
	"github.com/Anthya1104/dss/internal/contract"
	"github.com/Anthya1104/dss/internal/stripe"
	"github.com/Anthya1104/dss/internal/wire"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ReadFile runs the two-phase file read: phase 1 asks the manager for the
// file's DSS layout, phase 2 reads every stripe with error injection and
// parity verification, making up to MaxReadRetries attempts per stripe (the
// first read included) before giving up (user.py's handle_read /
// read_file_from_dss). errorProb is the
// percent chance (0-100) of flipping one bit in one block on a stripe's
// first read attempt only.
func (c *Client) ReadFile(dssName, fileName string, errorProb int) ([]byte, error) {
	resp, err := c.sendToManager("read", contract.ReadParams{DSSName: dssName, FileName: fileName, UserName: c.Name})
	if err != nil {
		return nil, fmt.Errorf("client: read phase 1 failed: %w", err)
	}
	if !resp.Ok() {
		return nil, fmt.Errorf("client: read rejected: %s", resp.Message)
	}

	var data contract.ReadData
	if err := wire.DecodePayload(resp.Data, &data); err != nil {
		return nil, err
	}

	logrus.Infof("user %s: reading %s (%d bytes) from DSS %s, error_prob=%d%%", c.Name, fileName, data.FileSize, dssName, errorProb)

	output, err := c.readFileFromDSS(fileName, data, errorProb)
	if err != nil {
		return nil, fmt.Errorf("client: read phase 2 failed: %w", err)
	}

	complete, err := c.sendToManager("read-complete", contract.ReadCompleteParams{DSSName: dssName, FileName: fileName, UserName: c.Name})
	if err != nil {
		return nil, fmt.Errorf("client: read-complete failed: %w", err)
	}
	if !complete.Ok() {
		return nil, fmt.Errorf("client: read-complete rejected: %s", complete.Message)
	}
	return output, nil
}

func (c *Client) readFileFromDSS(fileName string, data contract.ReadData, errorProb int) ([]byte, error) {
	numStripes := stripe.StripeCount(data.FileSize, data.N, data.StripingUnit)
	output := make([]byte, 0, data.FileSize)

	for s := 0; s < numStripes; s++ {
		blocks, err := c.readStripeWithRetry(data.Disks, data.DSSName, fileName, s, errorProb)
		if err != nil {
			return nil, fmt.Errorf("stripe %d: %w", s, err)
		}

		parityIdx := stripe.ParityIndex(s, data.N)
		for i, b := range blocks {
			if i == parityIdx {
				continue
			}
			output = append(output, b...)
		}
	}

	if len(output) > data.FileSize {
		output = output[:data.FileSize]
	}
	return output, nil
}

// readStripeWithRetry reads one stripe, injects an error on the first
// attempt with probability errorProb, verifies parity, and rereads the
// whole stripe if verification fails, for at most MaxReadRetries attempts
// in all.
func (c *Client) readStripeWithRetry(disks []contract.DiskContact, dssName, fileName string, stripeNum, errorProb int) ([][]byte, error) {
	var lastErr error
	for attempt := 0; attempt < config.MaxReadRetries; attempt++ {
		blocks, blockTypes, err := c.readStripeFromDisks(disks, dssName, fileName, stripeNum)
		if err != nil {
			lastErr = err
			continue
		}

		if attempt == 0 && errorProb > 0 && c.RNG.Intn(100) < errorProb {
			idx := c.RNG.Intn(len(blocks))
			blocks[idx] = stripe.InjectFlip(blocks[idx], c.RNG)
			logrus.Warnf("user %s: injected error into block %d of stripe %d", c.Name, idx, stripeNum)
		}

		parityIdx := stripe.ParityIndex(stripeNum, len(disks))
		var dataBlocks [][]byte
		var parityBlock []byte
		for i, b := range blocks {
			if i == parityIdx {
				parityBlock = b
			} else {
				dataBlocks = append(dataBlocks, b)
			}
		}

		ok, err := stripe.Verify(dataBlocks, parityBlock)
		if err != nil {
			lastErr = err
			continue
		}
		if ok {
			_ = blockTypes
			return blocks, nil
		}
		lastErr = fmt.Errorf("parity verification failed")
		logrus.Warnf("user %s: stripe %d parity verification failed, retrying", c.Name, stripeNum)
	}
	return nil, fmt.Errorf("stripe %d failed after %d attempts: %w", stripeNum, config.MaxReadRetries, lastErr)
}

// readStripeFromDisks fans out one read-block request per disk
// (user.py's read_stripe_from_disks).
func (c *Client) readStripeFromDisks(disks []contract.DiskContact, dssName, fileName string, stripeNum int) ([][]byte, []contract.BlockType, error) {
	blocks := make([][]byte, len(disks))
	types := make([]contract.BlockType, len(disks))

	var g errgroup.Group
	for i := range disks {
		i := i
		g.Go(func() error {
			req, err := wire.NewRequest("read-block", contract.ReadBlockParams{
				DSSName: dssName, FileName: fileName, StripeNum: stripeNum,
			}, c.Name)
			if err != nil {
				return err
			}
			resp, err := wire.SendStreamRequest(wire.Addr{IPv4: disks[i].IPv4Addr, Port: disks[i].CPort}, req)
			if err != nil {
				return fmt.Errorf("disk %s: %w", disks[i].DiskName, err)
			}
			if !resp.Ok() {
				return fmt.Errorf("disk %s: %s", disks[i].DiskName, resp.Message)
			}
			var blockData contract.ReadBlockData
			if err := wire.DecodePayload(resp.Data, &blockData); err != nil {
				return err
			}
			block, err := wire.DecodeBlock(blockData.BlockData)
			if err != nil {
				return err
			}
			blocks[i] = block
			types[i] = blockData.BlockType
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return blocks, types, nil
}
