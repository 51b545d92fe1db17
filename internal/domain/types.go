package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Chain represents the blockchain network identifier using CAIP-2 format
type Chain string

const (
	ChainEthereumMainnet Chain = "eip155:1"
	ChainEthereumSepolia Chain = "eip155:11155111"
	ChainBaseMainnet     Chain = "eip155:8453"
	ChainBaseSepolia     Chain = "eip155:84532"
)

// IsValidChain checks if a chain is valid
func IsValidChain(chain Chain) bool {
	return chain == ChainEthereumMainnet ||
		chain == ChainEthereumSepolia ||
		chain == ChainBaseMainnet ||
		chain == ChainBaseSepolia
}

// Channel is a notification transport
type Channel string

const (
	ChannelDiscord Channel = "discord"
	ChannelEmail   Channel = "email"
	ChannelWebhook Channel = "webhook"
)

// Channels lists every channel in the order the default notification path attempts them
var Channels = []Channel{ChannelDiscord, ChannelEmail, ChannelWebhook}

// Valid reports whether the channel is one the dispatcher knows
func (c Channel) Valid() bool {
	return c == ChannelDiscord || c == ChannelEmail || c == ChannelWebhook
}

// Outcome is the result of processing a matched workflow
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// NormalizeAddress lowercases and trims an address so it can be used as a key
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// SameAddress compares two addresses case-insensitively. Empty addresses never match.
func SameAddress(a, b string) bool {
	na, nb := NormalizeAddress(a), NormalizeAddress(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb
}

// IsEthereumAddress reports whether s is a hex encoded 20 byte address
func IsEthereumAddress(s string) bool {
	return common.IsHexAddress(strings.TrimSpace(s))
}
