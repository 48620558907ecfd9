package logic

import (
	"fmt"
	"strings"
	"text/template"

	"promogen/models"
)

// 词表
var (
	ArtStyles   = []string{"Photorealism", "Classicism", "Land Art", "Realism", "modernist"}
	Resolutions = []string{"unreal engine", "sharp focus", "8k", "vray"}
	Lighting    = []string{"cinematic", "dark", "sunlight", "god rays"}
	BrandColors = []string{"light salmon", "pale turquoise", "royal blue"}
	Locations   = []string{"urban", "countryside", "beach", "mountain", "forest"}
	Activities  = []string{"sport", "work", "relaxation", "travel", "entertainment", "meditation", "exploration", "business"}
	Attributes  = []string{"mobile phone", "coffee", "book", "car", "house"}
)

const (
	PeopleExclusion = "avoid any depiction of animals or objects."
	ObjectExclusion = "avoid digits, letters, and any human or human-like figures."
)

// artifactBoilerplate 所有负向提示词共用的部分
const artifactBoilerplate = "The artwork avoids the pitfalls of bad art, such as ugly and deformed eyes and faces, " +
	"poorly drawn, blurry, and disfigured bodies with extra limbs and close-ups that look weird. " +
	"It also avoids other common issues such as watermarking, text errors, missing fingers, cropping, poor quality, and JPEG artifacts. " +
	"The artwork is free of signature or watermark and avoids framing issues. " +
	"The hands are not deformed, the eyes are not disfigured, and there are no extra bodies or limbs. " +
	"The artwork is not blurry, out of focus, or poorly drawn, and the proportions are not bad or deformed. " +
	"There are no mutations, missing limbs, or floating or disconnected limbs. " +
	"The hands and neck are not malformed, and there are no extra heads or out-of-frame elements. " +
	"The artwork is not low-res or disgusting and is a well-drawn, highly detailed, and beautiful rendering."

const promptTemplate = `The image must include the colors {{join .Colors ", "}}.` +
	`{{if .Custom}} {{.Custom}}{{end}}` +
	` Depict {{.Subject}}{{if .AgeGroup}} {{.AgeGroup}}{{end}} involved in {{.Activity}} with {{.Attribute}}.` +
	` The scene should be in a {{.Location}} setting, rendered in {{.Resolution}} resolution.` +
	` Ensure the use of {{.Lighting}} lighting and {{.Style}} style.`

type promptData struct {
	Colors     []string
	Custom     string
	Subject    string
	AgeGroup   string
	Activity   string
	Attribute  string
	Location   string
	Resolution string
	Lighting   string
	Style      string
}

// PromptSynthesizer 根据请求属性生成提示词与负向提示词
// 相同输入的输出不固定，风格、光照、场景、分辨率都是随机抽取的
type PromptSynthesizer struct {
	src  RandomSource
	tmpl *template.Template
}

func NewPromptSynthesizer(src RandomSource) (*PromptSynthesizer, error) {
	tmpl, err := template.New("prompt").
		Funcs(template.FuncMap{"join": strings.Join}).
		Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	return &PromptSynthesizer{src: src, tmpl: tmpl}, nil
}

// AgeGroup 年龄分段
func AgeGroup(age int) string {
	switch {
	case age < 11:
		return "child"
	case age < 18:
		return "teenager"
	case age < 26:
		return "young adult"
	case age < 51:
		return "adult"
	default:
		return "senior"
	}
}

// Synthesize 返回 (prompt, negativePrompt)
func (p *PromptSynthesizer) Synthesize(age int, sex models.Sex, product models.Product, customPrompt string) (string, string, error) {
	data := promptData{
		Colors:  BrandColors,
		Custom:  customPrompt,
		Subject: "an object",
	}
	if product == models.ProductPeople && sex != models.SexUnspecified {
		data.Subject = "a well-dressed " + string(sex)
		data.AgeGroup = AgeGroup(age)
	}

	switch product {
	case models.ProductPaymentCard:
		data.Attribute, data.Activity = "a payment card without visible digits", "being used"
	case models.ProductBuilding:
		data.Attribute, data.Activity = "a building", "inhabited"
	case models.ProductVehicle:
		data.Attribute, data.Activity = "a vehicle", "parked"
	default:
		data.Attribute = pick(p.src, Attributes)
		data.Activity = pick(p.src, Activities)
	}
	data.Location = pick(p.src, Locations)
	data.Resolution = pick(p.src, Resolutions)
	data.Lighting = pick(p.src, Lighting)
	data.Style = pick(p.src, ArtStyles)

	var sb strings.Builder
	if err := p.tmpl.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render prompt: %w", err)
	}
	return sb.String(), NegativePrompt(product), nil
}

// NegativePrompt 产品相关的排除语 + 固定的瑕疵描述
func NegativePrompt(product models.Product) string {
	if product == models.ProductPeople {
		return PeopleExclusion + " " + artifactBoilerplate
	}
	return ObjectExclusion + " " + artifactBoilerplate
}
