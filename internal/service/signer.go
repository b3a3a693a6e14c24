package service

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	apperrors "github.com/AyuTriphasari/baget/internal/errors"
	"github.com/AyuTriphasari/baget/internal/logging"
	"github.com/AyuTriphasari/baget/internal/types"
)

// OwnershipVerifier is what the signer needs from the verifier.
type OwnershipVerifier interface {
	VerifyOwnership(ctx context.Context, fid uint64, address string) bool
}

// SignRequest is a claim-authorization request.
type SignRequest struct {
	GiveawayID string `json:"giveawayId"`
	FID        uint64 `json:"fid"`
	Address    string `json:"address"`
}

// SignResponse carries the authorization back to the client, echoing the
// inputs the contract will check the signature against.
type SignResponse struct {
	Signature  string `json:"signature"`
	GiveawayID string `json:"giveawayId"`
	FID        uint64 `json:"fid"`
	Address    string `json:"address"`
	ChainID    uint64 `json:"chainId"`
}

// Signer issues claim authorizations. A signature attests that the backend
// verified the claimer's FID/address binding; the contract rejects claim
// transactions without one. Per-claim replay protection lives on chain, so
// issuing a signature twice is harmless.
type Signer struct {
	key      *ecdsa.PrivateKey
	chainID  *big.Int
	verifier OwnershipVerifier
	logger   *logging.Logger
}

// NewSigner creates the authorization signer from a hex-encoded private key.
func NewSigner(privateKeyHex string, chainID uint64, verifier OwnershipVerifier, logger *logging.Logger) (*Signer, error) {
	if len(privateKeyHex) >= 2 && privateKeyHex[:2] == "0x" {
		privateKeyHex = privateKeyHex[2:]
	}
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid signer private key: %w", err)
	}

	return &Signer{
		key:      key,
		chainID:  new(big.Int).SetUint64(chainID),
		verifier: verifier,
		logger:   logger.WithField("component", "signer"),
	}, nil
}

// SignerAddress returns the address recovered from signatures this signer
// produces. The contract pins this as its trusted signer.
func (s *Signer) SignerAddress() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// Sign validates the request, verifies FID ownership and returns a packed
// 65-byte signature over (giveawayId, fid, address, chainId). Ownership is
// checked on every call; no outcome is cached.
func (s *Signer) Sign(ctx context.Context, req *SignRequest) (*SignResponse, error) {
	giveawayID, err := types.ParseGiveawayID(req.GiveawayID)
	if err != nil {
		return nil, apperrors.NewInvalidParameterError("giveawayId", err.Error())
	}
	if req.FID == 0 {
		return nil, apperrors.NewInvalidParameterError("fid", "must be a positive integer")
	}
	if !types.IsValidAddress(req.Address) {
		return nil, apperrors.NewInvalidParameterError("address", "must be a 0x-prefixed 20-byte hex address")
	}

	if !s.verifier.VerifyOwnership(ctx, req.FID, req.Address) {
		s.logger.WithFields(map[string]interface{}{
			"fid":     req.FID,
			"address": req.Address,
		}).Warn("ownership verification failed")
		return nil, apperrors.NewOwnershipVerificationError(req.FID)
	}

	signature, err := s.sign(giveawayID, req.FID, common.HexToAddress(req.Address))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to sign authorization", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"giveawayId": req.GiveawayID,
		"fid":        req.FID,
	}).Info("issued claim authorization")

	return &SignResponse{
		Signature:  signature,
		GiveawayID: req.GiveawayID,
		FID:        req.FID,
		Address:    req.Address,
		ChainID:    s.chainID.Uint64(),
	}, nil
}

// sign hashes abi.encodePacked(uint256 giveawayId, uint256 fid, address,
// uint256 chainId), wraps it in the Ethereum signed-message prefix and signs.
// V is shifted to the 27/28 convention the contract's ecrecover expects.
func (s *Signer) sign(giveawayID *big.Int, fid uint64, address common.Address) (string, error) {
	var packed []byte
	packed = append(packed, common.BigToHash(giveawayID).Bytes()...)
	packed = append(packed, common.BigToHash(new(big.Int).SetUint64(fid)).Bytes()...)
	packed = append(packed, address.Bytes()...)
	packed = append(packed, common.BigToHash(s.chainID).Bytes()...)

	messageHash := crypto.Keccak256(packed)
	prefixed := crypto.Keccak256(
		[]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(messageHash))),
		messageHash,
	)

	signature, err := crypto.Sign(prefixed, s.key)
	if err != nil {
		return "", err
	}
	signature[64] += 27

	return hexutil.Encode(signature), nil
}
