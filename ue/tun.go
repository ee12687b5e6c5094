package ue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/Alonza0314/free-ran-l2/constant"
	"github.com/Alonza0314/free-ran-l2/util"
	"github.com/songgao/water"
)

func bringUpUeTunnelDevice(name, ip string) (*water.Interface, error) {
	tun, err := water.New(water.Config{
		DeviceType: water.TUN,
		PlatformSpecificParams: water.PlatformSpecificParams{
			Name: name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error creating tun device %s: %v", name, err)
	}

	if out, err := exec.Command("ip", "addr", "add", ip, "dev", name).CombinedOutput(); err != nil {
		_ = tun.Close()
		return nil, fmt.Errorf("error setting ip %s on %s: %v (%s)", ip, name, err, out)
	}
	if out, err := exec.Command("ip", "link", "set", "dev", name, "up").CombinedOutput(); err != nil {
		_ = tun.Close()
		return nil, fmt.Errorf("error bringing up %s: %v (%s)", name, err, out)
	}
	return tun, nil
}

func bringDownUeTunnelDevice(name string) error {
	if out, err := exec.Command("ip", "link", "del", name).CombinedOutput(); err != nil {
		return fmt.Errorf("error deleting %s: %v (%s)", name, err, out)
	}
	return nil
}

func (u *Ue) setupTunnelDevice() error {
	tun, err := bringUpUeTunnelDevice(u.tunCfg.Name, u.tunCfg.Ip)
	if err != nil {
		return err
	}
	u.tun = tun
	u.TunLog.Infof("TUN %s up, IP %s, lcid %d", u.tunCfg.Name, u.tunCfg.Ip, u.tunCfg.Lcid)
	return nil
}

func (u *Ue) cleanUpTunnelDevice() {
	if u.tun == nil {
		return
	}
	if err := u.tun.Close(); err != nil {
		u.TunLog.Errorf("Error closing TUN: %v", err)
	}
	if err := bringDownUeTunnelDevice(u.tunCfg.Name); err != nil {
		u.TunLog.Errorf("Error bringing down TUN: %v", err)
	}
	u.TunLog.Infoln("TUN cleaned up")
}

// readTun moves IPv4 packets from the TUN device into the data radio bearer.
func (u *Ue) readTun(ctx context.Context) {
	defer u.wg.Done()

	buf := make([]byte, constant.UE_TUN_READ_SIZE)
	for {
		n, err := u.tun.Read(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, os.ErrClosed) {
				u.TunLog.Debugln("TUN reader stopped")
				return
			}
			u.TunLog.Errorf("Error reading TUN: %v", err)
			return
		}
		if ok, reason := util.ValidateIPPacket(buf[:n]); !ok {
			u.TunLog.Tracef("Skipping packet from TUN: %s", reason)
			continue
		}
		if err := u.rlc.WriteSdu(u.tunCfg.Lcid, buf[:n]); err != nil {
			u.TunLog.Warnf("Dropping packet from TUN: %v", err)
			continue
		}
		u.TunLog.Tracef("TUN -> lcid %d: %s", u.tunCfg.Lcid, util.DescribeIPPacket(buf[:n]))
	}
}

// writeTun is the DL sink of the TUN bearer.
func (u *Ue) writeTun(sdu []byte) {
	if _, err := u.tun.Write(sdu); err != nil {
		u.TunLog.Warnf("Error writing TUN: %v", err)
	}
}
