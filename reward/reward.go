package reward

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"crimewatch/metrics"

	"github.com/apex/log"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

const transferGasLimit = uint64(21000)

func FromWei(src *big.Int) float32 {
	res, _ := decimal.NewFromBigInt(src, -18).Float64()
	return float32(res)
}

func ToWei(src float32) *big.Int {
	srcDec := decimal.NewFromFloat32(src)
	weiInt := big.NewInt(0).Mul(srcDec.Coefficient(), big.NewInt(0).Exp(big.NewInt(10), big.NewInt(int64(int32(18)+srcDec.Exponent())), nil))
	return weiInt
}

// Result is the outcome of one transfer attempt. A failed transfer is data,
// not an error; the verification that triggered it has already been stored.
type Result struct {
	Recipient   string  `json:"recipient"`
	Amount      float32 `json:"amount"`
	TxHash      string  `json:"tx_hash,omitempty"`
	ExplorerURL string  `json:"explorer_url,omitempty"`
	Status      string  `json:"status"`
	Err         error   `json:"-"`
}

// Sender pays out a reward to a recipient address.
type Sender interface {
	Transfer(ctx context.Context, recipient string, amount float32) *Result
}

// ValidAddress reports whether addr is a well-formed hex address.
func ValidAddress(addr string) bool {
	return ethcommon.IsHexAddress(addr)
}

// EthSender sends native value transfers on an EVM chain.
type EthSender struct {
	client      *ethclient.Client
	chainID     *big.Int
	privateKey  *ecdsa.PrivateKey
	fromAddress ethcommon.Address
	explorerFmt string
}

func NewEthSender(ethNetworkURL, privateKey, explorerFmt string) (*EthSender, error) {
	s := &EthSender{explorerFmt: explorerFmt}

	client, err := ethclient.Dial(ethNetworkURL)
	if err != nil {
		return nil, fmt.Errorf("error creating ethclient with the network url %s: %w", ethNetworkURL, err)
	}
	s.client = client

	chainID, err := client.NetworkID(context.Background())
	if err != nil {
		return nil, fmt.Errorf("error getting network ID: %w", err)
	}
	s.chainID = chainID

	if len(privateKey) == 0 {
		return nil, fmt.Errorf("the eth private key param isn't specified")
	}
	s.privateKey, err = crypto.HexToECDSA(privateKey)
	if err != nil {
		return nil, fmt.Errorf("error converting private key: %w", err)
	}

	publicKey := s.privateKey.Public()
	publicKeyECDSA, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("error creating ECDSA public key from %v", publicKey)
	}
	s.fromAddress = crypto.PubkeyToAddress(*publicKeyECDSA)

	log.Infof("Reward sender initialized, chain ID: %v, sender address: %v", s.chainID, s.fromAddress)

	return s, nil
}

// Transfer sends amount native units to recipient as a signed legacy
// transaction. The result carries the failure instead of an error return so
// callers can store it alongside the verification.
func (s *EthSender) Transfer(ctx context.Context, recipient string, amount float32) *Result {
	result := &Result{
		Recipient: recipient,
		Amount:    amount,
		Status:    "failed",
	}

	fail := func(err error) *Result {
		log.Errorf("Failed transferring %f to %s: %v", amount, recipient, err)
		metrics.RewardTransferTotal.WithLabelValues("failed").Inc()
		result.Err = err
		return result
	}

	if !ethcommon.IsHexAddress(recipient) {
		return fail(fmt.Errorf("invalid recipient address %q", recipient))
	}
	to := ethcommon.HexToAddress(recipient)

	nonce, err := s.client.PendingNonceAt(ctx, s.fromAddress)
	if err != nil {
		return fail(fmt.Errorf("error getting pending nonce: %w", err))
	}

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return fail(fmt.Errorf("error getting gas price: %w", err))
	}

	tx := types.NewTransaction(nonce, to, ToWei(amount), transferGasLimit, gasPrice, nil)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(s.chainID), s.privateKey)
	if err != nil {
		return fail(fmt.Errorf("error signing transaction: %w", err))
	}

	if err := s.client.SendTransaction(ctx, signedTx); err != nil {
		return fail(fmt.Errorf("error sending transaction: %w", err))
	}

	result.TxHash = signedTx.Hash().String()
	if s.explorerFmt != "" {
		result.ExplorerURL = fmt.Sprintf(s.explorerFmt, result.TxHash)
	}
	result.Status = "sent"
	metrics.RewardTransferTotal.WithLabelValues("sent").Inc()
	log.Infof("Transferred %f to %s, tx %s", amount, recipient, result.TxHash)
	return result
}
