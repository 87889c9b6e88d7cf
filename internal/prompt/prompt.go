package prompt

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

// Template is filled by Compose. The irregular spacing is intentional.
const Template = "A {age} {gender} {nature} {theme} ,{style} style, character with  {hairColor} {hairDecorations} {hair} hair and {eyeColor} eyes, {mood} expression, wearing {clothing} {clothingColor}, {pose},  {background} background, {artStyle}, cinematic lighting, ultra high quality, 8k, epic , aspect ratio {aspectRatio} , {phase}"

var ErrInvalidOption = errors.New("invalid option")

type Options struct {
	Gender          string `json:"gender"`
	Age             string `json:"age"`
	Hair            string `json:"hair"`
	Theme           string `json:"theme"`
	Nature          string `json:"nature"`
	Style           string `json:"style"`
	HairColor       string `json:"hairColor"`
	HairDecorations string `json:"hairDecorations"`
	EyeColor        string `json:"eyeColor"`
	Clothing        string `json:"clothing"`
	ClothingColor   string `json:"clothingColor"`
	Pose            string `json:"pose"`
	Background      string `json:"background"`
	Mood            string `json:"mood"`
	ArtStyle        string `json:"artStyle"`
	AspectRatio     string `json:"aspectRatio"`
	Phase           string `json:"phase"`
}

// Defaults is the preselected character on the composer page
func Defaults() Options {
	return Options{
		Gender:          "female",
		Age:             "young adult",
		Hair:            "Long",
		Theme:           "wuxia",
		Nature:          "beautiful",
		Style:           "anime",
		HairColor:       "black",
		HairDecorations: "none",
		EyeColor:        "brown",
		Clothing:        "casual",
		ClothingColor:   "black",
		Pose:            "standing",
		Background:      "simple",
		Mood:            "happy",
		ArtStyle:        "digital art",
		AspectRatio:     "9:16",
		Phase:           "A shot that clearly shows the entire character from head to toe, controlling the character's composition and clothing.",
	}
}

func (o *Options) field(name string) *string {
	switch name {
	case FieldGender:
		return &o.Gender
	case FieldAge:
		return &o.Age
	case FieldHair:
		return &o.Hair
	case FieldTheme:
		return &o.Theme
	case FieldNature:
		return &o.Nature
	case FieldStyle:
		return &o.Style
	case FieldHairColor:
		return &o.HairColor
	case FieldHairDecorations:
		return &o.HairDecorations
	case FieldEyeColor:
		return &o.EyeColor
	case FieldClothing:
		return &o.Clothing
	case FieldClothingColor:
		return &o.ClothingColor
	case FieldPose:
		return &o.Pose
	case FieldBackground:
		return &o.Background
	case FieldMood:
		return &o.Mood
	case FieldArtStyle:
		return &o.ArtStyle
	case FieldAspectRatio:
		return &o.AspectRatio
	case FieldPhase:
		return &o.Phase
	}
	return nil
}

// Get returns the value of a named field
func (o Options) Get(name string) (string, bool) {
	p := o.field(name)
	if p == nil {
		return "", false
	}
	return *p, true
}

// Set assigns a named field without checking the catalog
func (o *Options) Set(name, value string) bool {
	p := o.field(name)
	if p == nil {
		return false
	}
	*p = value
	return true
}

// Compose replaces every placeholder in Template with the option values
func Compose(o Options) string {
	pairs := make([]string, 0, 2*len(Fields))
	for _, f := range Fields {
		v, _ := o.Get(f)
		pairs = append(pairs, "{"+f+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(Template)
}

// Randomize picks one catalog value per field
func Randomize(rng *rand.Rand) Options {
	var o Options
	for _, f := range Fields {
		vs := catalog[f]
		o.Set(f, vs[rng.IntN(len(vs))])
	}
	return o
}

// Validate reports every field whose value is not in the catalog
func Validate(o Options) error {
	var errs []error
	for _, f := range Fields {
		v, _ := o.Get(f)
		if !allowed(f, v) {
			errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidOption, f, v))
		}
	}
	return errors.Join(errs...)
}
