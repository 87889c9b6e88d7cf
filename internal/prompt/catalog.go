package prompt

// Field names double as template placeholders and JSON keys
const (
	FieldGender          = "gender"
	FieldAge             = "age"
	FieldHair            = "hair"
	FieldTheme           = "theme"
	FieldNature          = "nature"
	FieldStyle           = "style"
	FieldHairColor       = "hairColor"
	FieldHairDecorations = "hairDecorations"
	FieldEyeColor        = "eyeColor"
	FieldClothing        = "clothing"
	FieldClothingColor   = "clothingColor"
	FieldPose            = "pose"
	FieldBackground      = "background"
	FieldMood            = "mood"
	FieldArtStyle        = "artStyle"
	FieldAspectRatio     = "aspectRatio"
	FieldPhase           = "phase"
)

// Fields lists every option in display order
var Fields = []string{
	FieldGender, FieldHair, FieldNature, FieldAge, FieldStyle, FieldTheme,
	FieldHairDecorations, FieldHairColor, FieldEyeColor, FieldClothing,
	FieldClothingColor, FieldPose, FieldBackground, FieldMood, FieldArtStyle,
	FieldAspectRatio, FieldPhase,
}

var palette = []string{
	"black", "brown", "blonde", "red", "blue", "pink", "purple", "green", "white", "silver",
}

var catalog = map[string][]string{
	FieldGender: {"male", "female", "non-binary"},
	FieldHair: {
		"Long", "Short", "Curly", "Straight", "Long tied up",
		"Long tied up with bangs", "Long tied up with one side braid", "Long braid",
	},
	FieldNature: {"beautiful", "cute", "handsome", "ugly"},
	FieldAge:    {"child", "teenager", "young adult", "adult", "middle-aged", "elderly"},
	FieldStyle:  {"anime", "realistic", "cartoon", "chibi", "semi-realistic", "3D CGI"},
	FieldTheme:  {"wuxia", "martial artist", "ancient china", "ancient thai"},
	FieldHairDecorations: {
		"flower", "ribbon", "headband", "tiara", "hairpin", "none",
	},
	FieldHairColor: palette,
	FieldEyeColor:  {"brown", "blue", "green", "hazel", "amber", "gray", "violet", "red"},
	FieldClothing: {
		"casual", "formal", "school uniform", "fantasy armor", "kimono",
		"modern dress", "streetwear", "traditional", "traditional Chinese",
	},
	FieldClothingColor: palette,
	FieldPose: {
		"standing", "sitting", "walking", "running", "dancing",
		"fighting pose", "thinking pose", "waving",
	},
	FieldBackground: {
		"simple", "forest", "city", "beach", "mountain", "room", "school", "fantasy landscape",
	},
	FieldMood: {
		"happy", "sad", "angry", "surprised", "calm", "excited", "mysterious", "confident",
	},
	FieldArtStyle: {
		"digital art", "oil painting", "watercolor", "pencil sketch", "cel shading", "photorealistic",
	},
	FieldAspectRatio: {"9:16", "4:3", "1:1", "3:4"},
	FieldPhase: {
		"A shot that emphasizes a specific part of the face, the face, or the mouth",
		"A full-length shot of the face, emphasizing the character's emotions",
		"A shot of a character from the chest up, emphasizing emotion and the upper body",
		"A shot that follows a character from the waist up, consistently throughout the scene",
		"A shot that emphasizes the entire body and steps upwards.",
		"A shot that clearly shows the entire character from head to toe, controlling the character's composition and clothing.",
		"A full-length shot of a character, emphasizing the importance of visualizing the character's relationship to the story.",
		"This is referred to here, emphasizing the prominence of the scenery and the story.",
	},
}

// Values returns a copy of the allowed values for field, nil when unknown
func Values(field string) []string {
	vs, ok := catalog[field]
	if !ok {
		return nil
	}
	return append([]string(nil), vs...)
}

// Catalog returns a copy of every field's allowed values
func Catalog() map[string][]string {
	out := make(map[string][]string, len(catalog))
	for k := range catalog {
		out[k] = Values(k)
	}
	return out
}

func allowed(field, value string) bool {
	for _, v := range catalog[field] {
		if v == value {
			return true
		}
	}
	return false
}
