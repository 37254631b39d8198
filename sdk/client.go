package sdk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/EnzoRoselli/InheritChain/schema"
	"github.com/tidwall/gjson"
	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/body"
)

// InheritCli talks to an inheritchain HTTP node.
type InheritCli struct {
	SCli *gentleman.Client
}

func New(nodeUrl string) *InheritCli {
	return &InheritCli{
		SCli: gentleman.New().URL(nodeUrl),
	}
}

func (a *InheritCli) GetInheritanceAddress(admin string) (string, error) {
	data, err := a.get(fmt.Sprintf("/inheritance/%s", admin))
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(data, "inheritanceContractAddress").String(), nil
}

func (a *InheritCli) GetState(inheritance string) (schema.InheritanceState, error) {
	state := schema.InheritanceState{}
	data, err := a.get(fmt.Sprintf("/state/%s", inheritance))
	if err != nil {
		return state, err
	}
	err = json.Unmarshal(data, &state)
	return state, err
}

func (a *InheritCli) GetRequests(inheritance string) ([]string, error) {
	data, err := a.get(fmt.Sprintf("/requests/%s", inheritance))
	if err != nil {
		return nil, err
	}
	res := make([]string, 0)
	for _, item := range gjson.ParseBytes(data).Array() {
		res = append(res, item.String())
	}
	return res, nil
}

func (a *InheritCli) GetHeirs(inheritance string) ([]schema.Heir, error) {
	data, err := a.get(fmt.Sprintf("/heirs/%s", inheritance))
	if err != nil {
		return nil, err
	}
	heirs := make([]schema.Heir, 0)
	err = json.Unmarshal(data, &heirs)
	return heirs, err
}

// GetBalances returns the pool balances as decimal strings.
func (a *InheritCli) GetBalances(inheritance string) (ether, usdc string, err error) {
	data, err := a.get(fmt.Sprintf("/balances/%s", inheritance))
	if err != nil {
		return
	}
	ether = gjson.GetBytes(data, "ether").String()
	usdc = gjson.GetBytes(data, "usdc").String()
	return
}

func (a *InheritCli) IsAdministratorDead(inheritance string) (bool, error) {
	data, err := a.get(fmt.Sprintf("/dead/%s", inheritance))
	if err != nil {
		return false, err
	}
	return gjson.GetBytes(data, "dead").Bool(), nil
}

func (a *InheritCli) GetRegistry(heir string) (schema.RegistryResp, error) {
	resp := schema.RegistryResp{}
	data, err := a.get(fmt.Sprintf("/registry/%s", heir))
	if err != nil {
		return resp, err
	}
	err = json.Unmarshal(data, &resp)
	return resp, err
}

func (a *InheritCli) GetHeirNFTs(inheritance, heir string) ([]schema.DeedNFT, error) {
	data, err := a.get(fmt.Sprintf("/nfts/%s/%s", inheritance, heir))
	if err != nil {
		return nil, err
	}
	deeds := make([]schema.DeedNFT, 0)
	err = json.Unmarshal(data, &deeds)
	return deeds, err
}

// message board

func (a *InheritCli) PostMessage(msg schema.MessageReq) (schema.Message, error) {
	res := schema.Message{}
	req := a.SCli.Post()
	req.Path("/messages")
	req.Use(body.JSON(msg))
	resp, err := req.Send()
	if err != nil {
		return res, err
	}
	defer resp.Close()
	if !resp.Ok {
		return res, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	err = resp.JSON(&res)
	return res, err
}

func (a *InheritCli) GetMessages(admin, inheritance string) ([]schema.Message, error) {
	req := a.SCli.Get()
	req.Path("/messages")
	req.SetQuery("adminAddress", admin)
	req.SetQuery("inheritanceContractAddress", inheritance)
	resp, err := req.Send()
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	if !resp.Ok {
		return nil, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	msgs := make([]schema.Message, 0)
	err = resp.JSON(&msgs)
	return msgs, err
}

func (a *InheritCli) GetHeirMessages(heir string) ([]schema.Message, error) {
	data, err := a.get(fmt.Sprintf("/messages/heir/%s", heir))
	if err != nil {
		return nil, err
	}
	msgs := make([]schema.Message, 0)
	err = json.Unmarshal(data, &msgs)
	return msgs, err
}

func (a *InheritCli) UpdateMessageHeirs(id uint, refs []schema.HeirRef) error {
	req := a.SCli.Put()
	req.AddPath(fmt.Sprintf("/messages/%d/heir-addresses", id))
	req.Use(body.JSON(refs))
	resp, err := req.Send()
	if err != nil {
		return err
	}
	defer resp.Close()
	if !resp.Ok {
		return errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	return nil
}

func (a *InheritCli) DeleteMessage(id uint) error {
	req := a.SCli.Delete()
	req.AddPath(fmt.Sprintf("/messages/%d", id))
	resp, err := req.Send()
	if err != nil {
		return err
	}
	defer resp.Close()
	if !resp.Ok {
		return errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	return nil
}

// pinned content

func (a *InheritCli) PinData(data []byte, contentType, uploader string) (schema.RespPin, error) {
	res := schema.RespPin{}
	req := a.SCli.Post()
	req.Path("/pin")
	req.SetHeader("Content-Type", contentType)
	if uploader != "" {
		req.SetHeader("X-Uploader-Address", uploader)
	}
	req.Body(bytes.NewReader(data))
	resp, err := req.Send()
	if err != nil {
		return res, err
	}
	defer resp.Close()
	if !resp.Ok {
		return res, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	err = resp.JSON(&res)
	return res, err
}

func (a *InheritCli) GetPin(digest string) ([]byte, error) {
	return a.get(fmt.Sprintf("/pin/%s", digest))
}

func (a *InheritCli) get(path string) ([]byte, error) {
	req := a.SCli.Get()
	req.AddPath(path)
	resp, err := req.Send()
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	if !resp.Ok {
		return nil, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	return resp.Bytes(), nil
}
