package ops

import (
	"context"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"

	"github.com/edgenode/jsruntime/edgejs/apperr"
	"github.com/edgenode/jsruntime/edgejs/msg"
	"github.com/edgenode/jsruntime/edgejs/runtime"
)

// CryptoDigest computes a SHA-1 or SHA-256 digest, the only two algorithms
// spec.md §4.H names. Grounded on original_source/src/ops/crypto.rs's
// op_crypto_digest; sha1/sha256 live in the standard library's crypto/sha1
// and crypto/sha256 rather than golang.org/x/crypto (which the teacher
// reaches for sha3/ripemd160/hkdf — none of those cover this op), so the
// standard library is the correct, not the fallback, choice here.
func CryptoDigest(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.CryptoDigest
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}

	var digest []byte
	switch p.Algorithm {
	case "sha1":
		sum := sha1.Sum(p.Data)
		digest = sum[:]
	case "sha256":
		sum := sha256.Sum256(p.Data)
		digest = sum[:]
	default:
		return nil, apperr.Newf(msg.ErrInvalidArgument, "unsupported digest algorithm %q", p.Algorithm)
	}

	reply, err := msg.NewReply(env, msg.KindCryptoDigest, msg.CryptoDigestReady{Digest: digest})
	if err != nil {
		return nil, apperr.New(msg.ErrInternal, err)
	}
	return reply, nil
}

// CryptoRandomValues fills length bytes from the CSPRNG, grounded on
// op_crypto_random_values.
func CryptoRandomValues(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.CryptoRandomValues
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}
	if p.Length <= 0 {
		return nil, apperr.Newf(msg.ErrInvalidArgument, "length must be positive, got %d", p.Length)
	}

	buf := make([]byte, p.Length)
	if _, err := rand.Read(buf); err != nil {
		return nil, apperr.New(msg.ErrInternal, err)
	}

	reply, err := msg.NewReply(env, msg.KindCryptoRandomValues, msg.CryptoRandomReady{Values: buf})
	if err != nil {
		return nil, apperr.New(msg.ErrInternal, err)
	}
	return reply, nil
}
