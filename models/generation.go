package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// 请求字段默认值
const (
	DefaultAge = 30
)

type Sex string

const (
	SexUnspecified Sex = ""
	SexMale        Sex = "male"
	SexFemale      Sex = "female"
)

// ParseSex 不区分大小写，空串表示未指定
func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unspecified":
		return SexUnspecified, nil
	case "male":
		return SexMale, nil
	case "female":
		return SexFemale, nil
	}
	return SexUnspecified, fmt.Errorf("unknown sex %q", s)
}

type Product string

const (
	ProductPeople      Product = "people"
	ProductVehicle     Product = "vehicle"
	ProductBuilding    Product = "building"
	ProductPaymentCard Product = "payment_card"
)

// productAliases 兼容旧界面里的产品写法
var productAliases = map[string]Product{
	"":             ProductPeople,
	"people":       ProductPeople,
	"vehicle":      ProductVehicle,
	"car":          ProductVehicle,
	"building":     ProductBuilding,
	"house":        ProductBuilding,
	"payment_card": ProductPaymentCard,
	"payment card": ProductPaymentCard,
	"credit card":  ProductPaymentCard,
	"card":         ProductPaymentCard,
}

// ParseProduct 解析产品类别，空串为 people
func ParseProduct(s string) (Product, error) {
	if p, ok := productAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unknown product %q", s)
}

// GenerationRequest 一次生成请求，Age 为 nil 表示未提供
type GenerationRequest struct {
	UserID       string
	Age          *int
	Sex          Sex
	Product      Product
	CustomPrompt string
	Height       int
	Width        int
}

// WithDefaults 填充未提供的年龄与产品
func (r GenerationRequest) WithDefaults() GenerationRequest {
	if r.Age == nil {
		age := DefaultAge
		r.Age = &age
	}
	if r.Product == "" {
		r.Product = ProductPeople
	}
	return r
}

// GenerationParameters 每次请求重新采样，不缓存
type GenerationParameters struct {
	Strength      float64
	GuidanceScale int
	Steps         int
	Seed          int64
}

// Metadata 持久化在 interactions.metadata 列中的文档
type Metadata struct {
	Age            int     `json:"age"`
	Sex            string  `json:"sex"`
	Product        string  `json:"product"`
	CustomPrompt   string  `json:"custom_prompt"`
	Height         int     `json:"height"`
	Width          int     `json:"width"`
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Strength       float64 `json:"strength"`
	GuidanceScale  int     `json:"guidance_scale"`
	Status         string  `json:"status"`
	Error          string  `json:"error,omitempty"`
}

// Value 以 JSON 写入数据库
func (m Metadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 兼容 mysql 返回的 []byte 与 sqlite 返回的 string
func (m *Metadata) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}
	return fmt.Errorf("unsupported metadata column type %T", src)
}

// GenerationRecord 对应 interactions 表，写入后不再修改
type GenerationRecord struct {
	ID           int64     `db:"id" json:"id"`
	GenerationID string    `db:"generation_id" json:"generation_id"`
	UserID       string    `db:"user_id" json:"user_id"`
	ImageURL     string    `db:"image_url" json:"image_url"`
	Metadata     Metadata  `db:"metadata" json:"metadata"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Succeeded 模型是否产出了图片
func (r *GenerationRecord) Succeeded() bool {
	return r.Metadata.Status == StatusSucceeded
}

// GenerateImageRequest POST /generate_image 请求体
// metadata 可以是 JSON 对象，也可以是字符串形式的字典
type GenerateImageRequest struct {
	UserID   string          `json:"user_id" binding:"required"`
	Metadata json.RawMessage `json:"metadata" binding:"required"`
}

// GenerateImageResponse 成功时返回
type GenerateImageResponse struct {
	GenerationID string `json:"generation_id"`
	ImagePath    string `json:"image_path"`
	Image        string `json:"image"` // base64
}

// InteractionResponse GET /interactions/:user_id 的单条记录
type InteractionResponse struct {
	ID       int64    `json:"id"`
	UserID   string   `json:"user_id"`
	ImageURL string   `json:"image_url"`
	Metadata Metadata `json:"metadata"`
}
