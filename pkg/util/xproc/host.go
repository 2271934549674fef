package xproc

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
)

// 测试注入点：允许测试替换系统调用以覆盖所有错误分支。
var (
	osHostname        = os.Hostname
	netInterfaceAddrs = net.InterfaceAddrs
)

const (
	// EnvPodName K8s Pod 名称环境变量（通过 Downward API 注入）
	EnvPodName = "POD_NAME"

	// EnvHostname 主机名环境变量（某些环境会设置）
	EnvHostname = "HOSTNAME"
)

// ErrNoPrivateAddress 无法找到私有 IPv4 地址。
// 当所有主机标识策略（环境变量、主机名）均失败，
// 且系统没有私有 IPv4 地址时，HostIdentity 返回此错误。
var ErrNoPrivateAddress = errors.New("xproc: no private IP address found")

// HostIdentity 返回当前主机的标识字符串，按以下优先级尝试：
//
//  1. POD_NAME 环境变量（K8s Downward API）
//  2. HOSTNAME 环境变量
//  3. os.Hostname()
//  4. 第一个私有 IPv4 地址（RFC1918 或链路本地）
//
// 结果不缓存，每次调用重新解析；调用方（如节点推导）只在启动时调用一次。
//
// 设计决策: 策略 1-2 失败原因总是"环境变量未设置"，直接跳过；
// os.Hostname() 的系统错误有诊断价值，在全链路失败时聚合到最终错误中。
func HostIdentity() (string, error) {
	if v := os.Getenv(EnvPodName); v != "" {
		return v, nil
	}
	if v := os.Getenv(EnvHostname); v != "" {
		return v, nil
	}

	hostname, hostnameErr := osHostname()
	if hostnameErr == nil && hostname != "" {
		return hostname, nil
	}
	if hostnameErr == nil {
		hostnameErr = errors.New("os.Hostname returned empty string")
	}

	ip, err := privateIPv4()
	if err != nil {
		return "", fmt.Errorf("xproc: all host identity strategies exhausted (os-hostname: %v): %w", hostnameErr, err)
	}
	return ip.String(), nil
}

// privateIPv4 获取私有 IPv4 地址。
//
// 注意：net.InterfaceAddrs 的枚举顺序依赖于操作系统，多网卡环境下
// 重启后可能选到不同的 IP。
func privateIPv4() (netip.Addr, error) {
	addrs, err := netInterfaceAddrs()
	if err != nil {
		return netip.Addr{}, err
	}

	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip, ok := netip.AddrFromSlice(ipnet.IP)
		if !ok {
			continue
		}
		ip = ip.Unmap()
		if ip.IsLoopback() || !ip.Is4() {
			continue
		}
		if isPrivateIPv4(ip) {
			return ip, nil
		}
	}

	return netip.Addr{}, ErrNoPrivateAddress
}

// isPrivateIPv4 判断是否为私有 IPv4 地址，包括 RFC1918 私有地址和 RFC3927 链路本地地址。
func isPrivateIPv4(ip netip.Addr) bool {
	ip = ip.Unmap()
	if !ip.Is4() {
		return false
	}
	return ip.IsPrivate() || ip.IsLinkLocalUnicast()
}
