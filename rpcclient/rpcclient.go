package rpcclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	. "github.com/alexdcox/appchain-go"
	"github.com/pkg/errors"
)

func NewRpcClient(hostPort string) (client *RpcClient, err error) {
	client = &RpcClient{
		HostPort: hostPort,
		http:     http.DefaultClient,
	}
	return
}

type RpcClient struct {
	HostPort string
	http     *http.Client
}

func (c *RpcClient) req(method string, path string, body io.Reader) (rsp *http.Response, out []byte, err error) {
	req, err2 := http.NewRequest(method, c.HostPort+path, body)
	if err2 != nil {
		err = errors.WithStack(err2)
		return
	}

	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	rsp, err = c.http.Do(req)
	if err != nil {
		err = errors.WithStack(err)
		return
	}
	defer rsp.Body.Close()

	out, err = io.ReadAll(rsp.Body)
	if err != nil {
		err = errors.WithStack(err)
		return
	}

	if rsp.Status[0] != '2' {
		errRsp := &RpcError{}
		if decodeErr := json.Unmarshal(out, errRsp); decodeErr == nil && errRsp.Err != "" {
			err = errRsp

			if stdErr := errRsp.StdErr(); stdErr != nil {
				err = stdErr
			}

			return
		}

		err = errors.Wrapf(ErrRpcFailed, "rpc response code %d with body %s", rsp.StatusCode, string(out))
		return
	}

	return
}

func (c *RpcClient) reqUnmarshal(method string, path string, body io.Reader, target any) (err error) {
	_, rspBody, err := c.req(method, path, body)
	if err != nil {
		return
	}

	err = json.Unmarshal(rspBody, target)
	if err != nil {
		err = errors.Wrapf(err, "unable to unmarshal body: %s", string(rspBody))
		return
	}

	return
}

func (c *RpcClient) get(path string, target any) (err error) {
	return c.reqUnmarshal(http.MethodGet, path, nil, target)
}

func (c *RpcClient) post(path string, in any, target any) (err error) {
	jsn, err := json.Marshal(in)
	if err != nil {
		err = errors.WithStack(err)
		return
	}

	return c.reqUnmarshal(http.MethodPost, path, bytes.NewReader(jsn), target)
}

type GetHeightOut struct {
	Height uint64 `json:"height"`
}

func (c *RpcClient) GetHeight() (out *GetHeightOut, err error) {
	out = &GetHeightOut{}
	err = c.get("/height", out)
	return
}

func (c *RpcClient) GetMetaData() (out *MetaData, err error) {
	out = &MetaData{}
	err = c.get("/metadata", out)
	return
}

type GetChainIDOut struct {
	ChainID string `json:"chainId"`
}

func (c *RpcClient) GetChainID() (out *GetChainIDOut, err error) {
	out = &GetChainIDOut{}
	err = c.get("/chain-id", out)
	return
}

func (c *RpcClient) GetReceipt(hash string) (out *Receipt, err error) {
	out = &Receipt{}
	err = c.get(fmt.Sprintf("/receipt/%s", hash), out)
	return
}

type DeployIn struct {
	Bytecode        string          `json:"bytecode"`
	Abi             json.RawMessage `json:"abi,omitempty"`
	Args            []any           `json:"args,omitempty"`
	StoreAbi        bool            `json:"storeAbi"`
	Quota           uint64          `json:"quota,omitempty"`
	ValidUntilBlock uint64          `json:"validUntilBlock,omitempty"`
}

func (c *RpcClient) Deploy(in *DeployIn) (out *Deployment, err error) {
	out = &Deployment{}
	err = c.post("/contract/deploy", in, out)
	return
}

type StoreAbiIn struct {
	Abi json.RawMessage `json:"abi"`
}

type StoreAbiOut struct {
	Address string `json:"address"`
	TxHash  string `json:"txHash"`
	Block   uint64 `json:"blockNumber"`
}

func (c *RpcClient) StoreAbi(address string, in *StoreAbiIn) (out *StoreAbiOut, err error) {
	out = &StoreAbiOut{}
	err = c.post(fmt.Sprintf("/contract/%s/abi", address), in, out)
	return
}

type GetAbiOut struct {
	Address string          `json:"address"`
	Abi     json.RawMessage `json:"abi"`
}

func (c *RpcClient) GetAbi(address string) (out *GetAbiOut, err error) {
	out = &GetAbiOut{}
	err = c.get(fmt.Sprintf("/contract/%s/abi", address), out)
	return
}

func (c *RpcClient) GetDeployment(address string) (out *Deployment, err error) {
	out = &Deployment{}
	err = c.get(fmt.Sprintf("/contract/%s", address), out)
	return
}

type AddressIn struct {
	PrivateKey string     `json:"privateKey"`
	Crypto     CryptoType `json:"crypto"`
}

type AddressOut struct {
	Address string `json:"address"`
}

func (c *RpcClient) AddressFromKey(in *AddressIn) (out *AddressOut, err error) {
	out = &AddressOut{}
	err = c.post("/tools/address", in, out)
	return
}

type RpcError struct {
	Err     string `json:"error"`
	Details string `json:"details"`
}

func (r *RpcError) Error() string {
	return r.Err
}

func (r *RpcError) StdErr() error {
	for _, a := range AllErrors {
		if r.Err == a.Error() {
			return errors.Wrap(a, r.Details)
		}
	}
	return nil
}
