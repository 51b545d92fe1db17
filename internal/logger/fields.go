package logger

import (
	"go.uber.org/zap"
)

// Workflow tags a log line with a workflow id
func Workflow(id string) zap.Field {
	return zap.String("workflow_id", id)
}

// Alert tags a log line with a portfolio alert id
func Alert(id string) zap.Field {
	return zap.String("alert_id", id)
}

// Channel tags a log line with a notification channel
func Channel(ch string) zap.Field {
	return zap.String("channel", ch)
}

// Block tags a log line with a block number
func Block(number uint64) zap.Field {
	return zap.Uint64("block_number", number)
}

// TxHash tags a log line with a transaction hash
func TxHash(hash string) zap.Field {
	return zap.String("tx_hash", hash)
}

// User tags a log line with a user address
func User(address string) zap.Field {
	return zap.String("user_address", address)
}
