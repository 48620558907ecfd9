package logic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"promogen/models"
)

var validate = validator.New()

// flexInt 兼容数字和数字字符串
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	*n = flexInt(v)
	return nil
}

// optionalInt 空字符串和 null 视为未提供
type optionalInt struct {
	n   int
	set bool
}

func (o *optionalInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(strings.Trim(string(b), `"`))
	if s == "" || s == "null" {
		*o = optionalInt{}
		return nil
	}
	var n flexInt
	if err := n.UnmarshalJSON(b); err != nil {
		return err
	}
	*o = optionalInt{n: int(n), set: true}
	return nil
}

type metadataInput struct {
	Age          optionalInt `json:"age"`
	Sex          string      `json:"sex"`
	Product      string      `json:"product"`
	CustomPrompt string      `json:"custom_prompt"`
	Height       flexInt     `json:"height" validate:"required,min=8"`
	Width        flexInt     `json:"width" validate:"required,min=8"`
}

// ParseMetadata 把请求里的 metadata 解析为 GenerationRequest，缺省的年龄留空，由 Generator 填充默认值
// raw 可以是 JSON 对象，也可以是 JSON 字符串，字符串内容允许使用单引号的字典写法
func ParseMetadata(userID string, raw json.RawMessage) (models.GenerationRequest, error) {
	var req models.GenerationRequest
	doc := bytes.TrimSpace(raw)
	if len(doc) == 0 {
		return req, fmt.Errorf("%w: empty", ErrInvalidMetadata)
	}

	if doc[0] == '"' {
		var s string
		if err := json.Unmarshal(doc, &s); err != nil {
			return req, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
		doc = []byte(strings.TrimSpace(s))
	}

	var in metadataInput
	if err := json.Unmarshal(doc, &in); err != nil {
		// 旧界面提交的是 {'age': 20, ...} 这种单引号字典
		if err2 := json.Unmarshal([]byte(strings.ReplaceAll(string(doc), "'", `"`)), &in); err2 != nil {
			return req, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
	}
	if err := validate.Struct(in); err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if in.Age.set && (in.Age.n < 0 || in.Age.n > 150) {
		return req, fmt.Errorf("%w: age %d out of range", ErrInvalidMetadata, in.Age.n)
	}

	sex, err := models.ParseSex(in.Sex)
	if err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	product, err := models.ParseProduct(in.Product)
	if err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}

	req = models.GenerationRequest{
		UserID:       userID,
		Sex:          sex,
		Product:      product,
		CustomPrompt: in.CustomPrompt,
		Height:       int(in.Height),
		Width:        int(in.Width),
	}
	if in.Age.set {
		age := in.Age.n
		req.Age = &age
	}
	return req, nil
}
