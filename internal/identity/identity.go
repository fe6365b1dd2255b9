// Package identity 从请求元数据推导匿名投票身份：
// 一个尽力而为的网络地址，以及由浏览器稳定请求头得出的指纹。
// 推导永远不会失败，信号缺失时返回空串，空串本身仍可作为相等键使用。
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Scheme 决定哪个信号作为持久身份
type Scheme string

const (
	// SchemeFingerprint 请求头指纹，出口节点轮换时依然稳定
	SchemeFingerprint Scheme = "fingerprint"
	// SchemeAddress 加盐后的网络地址哈希
	SchemeAddress Scheme = "address"
	// SchemeBoth 指纹为主键，地址哈希作为 OR 匹配的备用键
	SchemeBoth Scheme = "both"
)

// ParseScheme 解析配置中的身份方案
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(s))) {
	case SchemeFingerprint, "":
		return SchemeFingerprint, nil
	case SchemeAddress:
		return SchemeAddress, nil
	case SchemeBoth:
		return SchemeBoth, nil
	}
	return "", fmt.Errorf("identity: unknown scheme %q", s)
}

// 单值代理头优先于 X-Forwarded-For，顺序固定
var addressHeaders = []string{
	"X-Real-Ip",
	"Cf-Connecting-Ip",
	"True-Client-Ip",
	"Fly-Client-Ip",
	"X-Client-Ip",
}

// 参与指纹计算的请求头，键名即排序键
var fingerprintHeaders = map[string]string{
	"accept":                  "Accept",
	"acceptEncoding":          "Accept-Encoding",
	"acceptLanguage":          "Accept-Language",
	"dnt":                     "Dnt",
	"priority":                "Priority",
	"secFetchDest":            "Sec-Fetch-Dest",
	"secFetchMode":            "Sec-Fetch-Mode",
	"secFetchSite":            "Sec-Fetch-Site",
	"secFetchUser":            "Sec-Fetch-User",
	"secGpc":                  "Sec-Gpc",
	"te":                      "Te",
	"upgradeInsecureRequests": "Upgrade-Insecure-Requests",
	"userAgent":               "User-Agent",
}

// Identity 单个请求的身份信号，只存活于请求周期内
type Identity struct {
	Address     string // 原始地址，只用于展示和调试，不落库
	AddressHash string
	Fingerprint string
}

// Voter 投票台账使用的身份键
type Voter struct {
	Token        string // 唯一约束里的 identity_token
	AddressHash  string // 随投票行保存
	MatchAddress bool   // 为 true 时 address_hash 相同也视为同一投票人
}

// Voter 按方案选择身份键
func (id Identity) Voter(scheme Scheme) Voter {
	switch scheme {
	case SchemeAddress:
		return Voter{Token: id.AddressHash, AddressHash: id.AddressHash}
	case SchemeBoth:
		// 回环或缺失的地址人人相同，不能用来识别投票人
		return Voter{Token: id.Fingerprint, AddressHash: id.AddressHash, MatchAddress: id.routableAddress()}
	default:
		return Voter{Token: id.Fingerprint, AddressHash: id.AddressHash}
	}
}

func (id Identity) routableAddress() bool {
	return id.Address != "" && !isLoopback(id.Address)
}

// Short 日志里用的前缀，避免打印完整身份
func Short(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	return token
}

// Resolver 按配置推导身份
type Resolver struct {
	salt         []byte
	scheme       Scheme
	trustHeaders bool
}

func NewResolver(salt string, scheme Scheme, trustProxyHeaders bool) *Resolver {
	return &Resolver{
		salt:         []byte(salt),
		scheme:       scheme,
		trustHeaders: trustProxyHeaders,
	}
}

func (r *Resolver) Scheme() Scheme {
	return r.scheme
}

// Resolve 计算请求的全部身份信号
func (r *Resolver) Resolve(req *http.Request) Identity {
	peer := PeerAddress(req.RemoteAddr)

	var addr string
	if r.trustHeaders {
		addr = ClientAddress(req.Header, peer)
	} else {
		addr = peer
	}

	return Identity{
		Address:     addr,
		AddressHash: r.HashAddress(addr),
		Fingerprint: Fingerprint(req.Header),
	}
}

// HashAddress 带盐的 BLAKE2b-256，原始地址不落库
func (r *Resolver) HashAddress(addr string) string {
	if len(r.salt) == 0 {
		sum := blake2b.Sum256([]byte(addr))
		return hex.EncodeToString(sum[:])
	}

	// 盐超过 64 字节时先压缩成 key
	key := r.salt
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(key)
		key = sum[:]
	}
	h, err := blake2b.New256(key)
	if err != nil {
		// 只有 key 超长才会出错，上面已经处理
		sum := blake2b.Sum256([]byte(addr))
		return hex.EncodeToString(sum[:])
	}
	h.Write([]byte(addr))
	return hex.EncodeToString(h.Sum(nil))
}

// PeerAddress 取 RemoteAddr 的主机部分
func PeerAddress(remoteAddr string) string {
	remoteAddr = strings.TrimSpace(remoteAddr)
	if remoteAddr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return strings.Trim(remoteAddr, "[]")
}

func isLoopback(addr string) bool {
	ip := net.ParseIP(addr)
	return ip != nil && ip.IsLoopback()
}

// ClientAddress 首个命中即返回：
//  1. 非回环的直连地址；
//  2. X-Real-Ip, Cf-Connecting-Ip, True-Client-Ip, Fly-Client-Ip, X-Client-Ip；
//  3. X-Forwarded-For 的第一个非空段；
//  4. 直连地址（即使是回环），否则空串。
func ClientAddress(h http.Header, peer string) string {
	if peer != "" && !isLoopback(peer) {
		return peer
	}

	for _, name := range addressHeaders {
		if v := strings.TrimSpace(h.Get(name)); v != "" {
			return v
		}
	}

	if xff := h.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if p := strings.TrimSpace(part); p != "" {
				return p
			}
		}
	}

	return peer
}

// Fingerprint 对固定请求头集合按键排序后拼接 key:value，用 | 连接，取 SHA-256 十六进制
func Fingerprint(h http.Header) string {
	keys := make([]string, 0, len(fingerprintHeaders))
	for k := range fingerprintHeaders {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+":"+h.Get(fingerprintHeaders[k]))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
