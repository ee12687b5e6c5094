package enb

import (
	"fmt"
	"net"

	"github.com/free5gc/sctp"
)

func resolveSctpAddr(ip string, port int) (*sctp.SCTPAddr, error) {
	addr, err := net.ResolveIPAddr("ip", ip)
	if err != nil {
		return nil, fmt.Errorf("error resolving sctp address '%s': %v", ip, err)
	}
	return &sctp.SCTPAddr{
		IPAddrs: []net.IPAddr{*addr},
		Port:    port,
	}, nil
}

func getCoreAndEnbSctpAddr(coreIp, enbIp string, corePort, enbPort int) (*sctp.SCTPAddr, *sctp.SCTPAddr, error) {
	coreAddr, err := resolveSctpAddr(coreIp, corePort)
	if err != nil {
		return nil, nil, err
	}
	enbAddr, err := resolveSctpAddr(enbIp, enbPort)
	if err != nil {
		return nil, nil, err
	}
	return coreAddr, enbAddr, nil
}
