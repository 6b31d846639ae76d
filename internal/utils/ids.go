package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// randomDigits returns n decimal digits, zero-padded, from crypto/rand.
// Falls back to a timestamp-derived value if the source fails.
func randomDigits(n int) string {
	max := big.NewInt(1)
	for i := 0; i < n; i++ {
		max.Mul(max, big.NewInt(10))
	}
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		v = big.NewInt(time.Now().UnixNano() % max.Int64())
	}
	return fmt.Sprintf("%0*d", n, v)
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomBase36(n int) string {
	out := make([]byte, n)
	for i := range out {
		v, err := rand.Int(rand.Reader, big.NewInt(36))
		if err != nil {
			out[i] = base36[time.Now().UnixNano()%36]
			continue
		}
		out[i] = base36[v.Int64()]
	}
	return string(out)
}

// NewTransactionID generates a ledger transaction id, e.g. TXN_1716899999999_0042.
func NewTransactionID() string {
	return fmt.Sprintf("TXN_%d_%s", time.Now().UnixMilli(), randomDigits(4))
}

// NewReceipt generates a payment receipt number, e.g. UDIN_1716899999999_123.
func NewReceipt() string {
	return fmt.Sprintf("UDIN_%d_%s", time.Now().UnixMilli(), randomDigits(3))
}

// NewUploadID generates an upload batch id, e.g. upload_1716899999999_k3j9x0a2f.
func NewUploadID() string {
	return fmt.Sprintf("upload_%d_%s", time.Now().UnixMilli(), randomBase36(9))
}

// NewUDIN generates a unique document identifier from the last six digits of
// the current unix-milli timestamp and a sequence number, e.g. UDIN9999990042.
// seq is the number of documents already issued plus one.
func NewUDIN(seq int64) string {
	ms := fmt.Sprintf("%d", time.Now().UnixMilli())
	return fmt.Sprintf("UDIN%s%04d", ms[len(ms)-6:], seq)
}
