package deploy

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// DefaultEtherscanURL is the API endpoint of the Etherscan explorer.
const DefaultEtherscanURL = "https://api.etherscan.io/api"

// ErrVerification is returned when the explorer refuses the source.
var ErrVerification = errors.New("verification failed")

// EtherscanResponse represents the response structure from the Etherscan API.
type EtherscanResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// VerifyRequest is the contract being verified.
type VerifyRequest struct {
	Address         database.AccountID
	Name            string
	Source          string
	ConstructorArgs string
}

// VerifierConfig represents the settings for the verifier.
type VerifierConfig struct {
	APIURL          string
	APIKey          string
	CompilerVersion string
	PollInterval    time.Duration
	Client          *http.Client
}

// Verifier submits contract sources to the Etherscan API.
type Verifier struct {
	apiURL          string
	apiKey          string
	compilerVersion string
	pollInterval    time.Duration
	client          *http.Client
}

// NewVerifier constructs a verifier. A verifier needs an API key.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing etherscan api key")
	}

	if cfg.APIURL == "" {
		cfg.APIURL = DefaultEtherscanURL
	}

	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Second
	}

	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}

	v := Verifier{
		apiURL:          cfg.APIURL,
		apiKey:          cfg.APIKey,
		compilerVersion: cfg.CompilerVersion,
		pollInterval:    cfg.PollInterval,
		client:          cfg.Client,
	}

	return &v, nil
}

// Verify submits the source and waits for the explorer to accept it. A
// contract that is already verified is a success.
func (v *Verifier) Verify(ctx context.Context, req VerifyRequest) error {
	form := url.Values{}
	form.Set("apikey", v.apiKey)
	form.Set("module", "contract")
	form.Set("action", "verifysourcecode")
	form.Set("contractaddress", string(req.Address))
	form.Set("sourceCode", req.Source)
	form.Set("codeformat", "solidity-single-file")
	form.Set("contractname", req.Name)
	form.Set("compilerversion", v.compilerVersion)
	form.Set("constructorArguements", req.ConstructorArgs)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.do(httpReq)
	if err != nil {
		return err
	}

	if alreadyVerified(resp) {
		return nil
	}

	if resp.Status != "1" {
		return fmt.Errorf("%w: %s: %s", ErrVerification, resp.Message, resp.Result)
	}

	return v.waitStatus(ctx, resp.Result)
}

// waitStatus polls the explorer until the submission identified by the
// guid is processed.
func (v *Verifier) waitStatus(ctx context.Context, guid string) error {
	query := url.Values{}
	query.Set("apikey", v.apiKey)
	query.Set("module", "contract")
	query.Set("action", "checkverifystatus")
	query.Set("guid", guid)

	ticker := time.NewTicker(v.pollInterval)
	defer ticker.Stop()

	for {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, v.apiURL+"?"+query.Encode(), nil)
		if err != nil {
			return err
		}

		resp, err := v.do(httpReq)
		if err != nil {
			return err
		}

		switch {
		case alreadyVerified(resp):
			return nil

		case resp.Status == "1":
			return nil

		case !strings.Contains(strings.ToLower(resp.Result), "pending"):
			return fmt.Errorf("%w: %s", ErrVerification, resp.Result)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (v *Verifier) do(req *http.Request) (EtherscanResponse, error) {
	resp, err := v.client.Do(req)
	if err != nil {
		return EtherscanResponse{}, fmt.Errorf("etherscan: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return EtherscanResponse{}, fmt.Errorf("etherscan: reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return EtherscanResponse{}, fmt.Errorf("etherscan: status %d: %s", resp.StatusCode, body)
	}

	var er EtherscanResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return EtherscanResponse{}, fmt.Errorf("etherscan: decoding response: %w", err)
	}

	return er, nil
}

func alreadyVerified(resp EtherscanResponse) bool {
	return strings.Contains(strings.ToLower(resp.Result), "already verified") ||
		strings.Contains(strings.ToLower(resp.Message), "already verified")
}

// =============================================================================

// FundMeConstructorArgs returns the ABI encoded constructor arguments of the
// FundMe contract as hex without the 0x prefix.
func FundMeConstructorArgs(priceFeed database.AccountID) (string, error) {
	addressType, err := abi.NewType("address", "", nil)
	if err != nil {
		return "", err
	}

	args := abi.Arguments{{Name: "priceFeed", Type: addressType}}

	data, err := args.Pack(priceFeed.Address())
	if err != nil {
		return "", fmt.Errorf("packing constructor args: %w", err)
	}

	return hex.EncodeToString(data), nil
}
