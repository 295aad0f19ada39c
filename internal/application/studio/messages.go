package studio

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/alchemorsel/studio/internal/domain/recipe"
)

// Message keys
const (
	msgErrorIngredients          = "errorIngredients"
	msgErrorGeneration           = "errorGeneration"
	msgErrorImageGeneration      = "errorImageGeneration"
	msgErrorVideoGeneration      = "errorVideoGeneration"
	msgErrorVideoCancelled       = "errorVideoCancelled"
	msgErrorSocialPostGeneration = "errorSocialPostGeneration"
	msgEmailSubjectPrefix        = "emailSubjectPrefix"
	msgIngredientsHeader         = "ingredientsHeader"
	msgInstructionsHeader        = "instructionsHeader"
	msgGmailBodyPlaceholder      = "gmailBodyPlaceholder"
)

var translations = map[recipe.Language]map[string]string{
	recipe.LanguageEnglish: {
		msgErrorIngredients:          "Please enter some ingredients first.",
		msgErrorGeneration:           "Sorry, we couldn't generate a recipe. Please try again.",
		msgErrorImageGeneration:      "We couldn't create an image for this recipe.",
		msgErrorVideoGeneration:      "We couldn't create a video for this recipe. Please try again.",
		msgErrorVideoCancelled:       "Video generation was cancelled.",
		msgErrorSocialPostGeneration: "We couldn't create a social media post. Please try again.",
		msgEmailSubjectPrefix:        "Recipe",
		msgIngredientsHeader:         "Ingredients",
		msgInstructionsHeader:        "Instructions",
		msgGmailBodyPlaceholder:      "The full recipe has been copied to your clipboard. Paste it here!",
	},
	recipe.LanguageSpanish: {
		msgErrorIngredients:          "Por favor, introduce algunos ingredientes primero.",
		msgErrorGeneration:           "Lo sentimos, no pudimos generar una receta. Inténtalo de nuevo.",
		msgErrorImageGeneration:      "No pudimos crear una imagen para esta receta.",
		msgErrorVideoGeneration:      "No pudimos crear un vídeo para esta receta. Inténtalo de nuevo.",
		msgErrorVideoCancelled:       "La generación del vídeo fue cancelada.",
		msgErrorSocialPostGeneration: "No pudimos crear una publicación para redes sociales. Inténtalo de nuevo.",
		msgEmailSubjectPrefix:        "Receta",
		msgIngredientsHeader:         "Ingredientes",
		msgInstructionsHeader:        "Instrucciones",
		msgGmailBodyPlaceholder:      "La receta completa se ha copiado en tu portapapeles. ¡Pégala aquí!",
	},
	recipe.LanguageFrench: {
		msgErrorIngredients:          "Veuillez d'abord saisir quelques ingrédients.",
		msgErrorGeneration:           "Désolé, nous n'avons pas pu générer de recette. Veuillez réessayer.",
		msgErrorImageGeneration:      "Nous n'avons pas pu créer d'image pour cette recette.",
		msgErrorVideoGeneration:      "Nous n'avons pas pu créer de vidéo pour cette recette. Veuillez réessayer.",
		msgErrorVideoCancelled:       "La génération de la vidéo a été annulée.",
		msgErrorSocialPostGeneration: "Nous n'avons pas pu créer de publication. Veuillez réessayer.",
		msgEmailSubjectPrefix:        "Recette",
		msgIngredientsHeader:         "Ingrédients",
		msgInstructionsHeader:        "Instructions",
		msgGmailBodyPlaceholder:      "La recette complète a été copiée dans votre presse-papiers. Collez-la ici !",
	},
	recipe.LanguageGerman: {
		msgErrorIngredients:          "Bitte gib zuerst einige Zutaten ein.",
		msgErrorGeneration:           "Leider konnte kein Rezept erstellt werden. Bitte versuche es erneut.",
		msgErrorImageGeneration:      "Für dieses Rezept konnte kein Bild erstellt werden.",
		msgErrorVideoGeneration:      "Für dieses Rezept konnte kein Video erstellt werden. Bitte versuche es erneut.",
		msgErrorVideoCancelled:       "Die Videoerstellung wurde abgebrochen.",
		msgErrorSocialPostGeneration: "Der Social-Media-Beitrag konnte nicht erstellt werden. Bitte versuche es erneut.",
		msgEmailSubjectPrefix:        "Rezept",
		msgIngredientsHeader:         "Zutaten",
		msgInstructionsHeader:        "Zubereitung",
		msgGmailBodyPlaceholder:      "Das vollständige Rezept wurde in die Zwischenablage kopiert. Füge es hier ein!",
	},
	recipe.LanguageItalian: {
		msgErrorIngredients:          "Inserisci prima alcuni ingredienti.",
		msgErrorGeneration:           "Spiacenti, non siamo riusciti a generare una ricetta. Riprova.",
		msgErrorImageGeneration:      "Non siamo riusciti a creare un'immagine per questa ricetta.",
		msgErrorVideoGeneration:      "Non siamo riusciti a creare un video per questa ricetta. Riprova.",
		msgErrorVideoCancelled:       "La generazione del video è stata annullata.",
		msgErrorSocialPostGeneration: "Non siamo riusciti a creare un post per i social. Riprova.",
		msgEmailSubjectPrefix:        "Ricetta",
		msgIngredientsHeader:         "Ingredienti",
		msgInstructionsHeader:        "Istruzioni",
		msgGmailBodyPlaceholder:      "La ricetta completa è stata copiata negli appunti. Incollala qui!",
	},
	recipe.LanguagePortuguese: {
		msgErrorIngredients:          "Por favor, insira alguns ingredientes primeiro.",
		msgErrorGeneration:           "Desculpe, não conseguimos gerar uma receita. Tente novamente.",
		msgErrorImageGeneration:      "Não conseguimos criar uma imagem para esta receita.",
		msgErrorVideoGeneration:      "Não conseguimos criar um vídeo para esta receita. Tente novamente.",
		msgErrorVideoCancelled:       "A geração do vídeo foi cancelada.",
		msgErrorSocialPostGeneration: "Não conseguimos criar uma publicação. Tente novamente.",
		msgEmailSubjectPrefix:        "Receita",
		msgIngredientsHeader:         "Ingredientes",
		msgInstructionsHeader:        "Modo de preparo",
		msgGmailBodyPlaceholder:      "A receita completa foi copiada para a área de transferência. Cole aqui!",
	},
	recipe.LanguageJapanese: {
		msgErrorIngredients:          "まず材料を入力してください。",
		msgErrorGeneration:           "レシピを生成できませんでした。もう一度お試しください。",
		msgErrorImageGeneration:      "このレシピの画像を作成できませんでした。",
		msgErrorVideoGeneration:      "このレシピの動画を作成できませんでした。もう一度お試しください。",
		msgErrorVideoCancelled:       "動画の生成はキャンセルされました。",
		msgErrorSocialPostGeneration: "SNS投稿を作成できませんでした。もう一度お試しください。",
		msgEmailSubjectPrefix:        "レシピ",
		msgIngredientsHeader:         "材料",
		msgInstructionsHeader:        "作り方",
		msgGmailBodyPlaceholder:      "レシピ全文をクリップボードにコピーしました。ここに貼り付けてください！",
	},
	recipe.LanguageChinese: {
		msgErrorIngredients:          "请先输入一些食材。",
		msgErrorGeneration:           "抱歉，无法生成食谱。请重试。",
		msgErrorImageGeneration:      "无法为此食谱生成图片。",
		msgErrorVideoGeneration:      "无法为此食谱生成视频。请重试。",
		msgErrorVideoCancelled:       "视频生成已取消。",
		msgErrorSocialPostGeneration: "无法生成社交媒体帖子。请重试。",
		msgEmailSubjectPrefix:        "食谱",
		msgIngredientsHeader:         "食材",
		msgInstructionsHeader:        "步骤",
		msgGmailBodyPlaceholder:      "完整食谱已复制到剪贴板。请粘贴到这里！",
	},
}

// Messages translates user-facing strings. Keys missing for a language
// fall back to English.
type Messages struct {
	catalog *catalog.Builder
}

// NewMessages builds the message catalog
func NewMessages() *Messages {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	english := translations[recipe.LanguageEnglish]
	for lang, entries := range translations {
		tag := lang.Tag()
		for key, en := range english {
			text, ok := entries[key]
			if !ok {
				text = en
			}
			_ = b.SetString(tag, key, text)
		}
	}
	return &Messages{catalog: b}
}

// T returns the translation of key in lang
func (m *Messages) T(lang recipe.Language, key string) string {
	p := message.NewPrinter(lang.OrDefault().Tag(), message.Catalog(m.catalog))
	return p.Sprintf(key)
}

// EmailLabels returns the translated labels of the email hand-off
func (m *Messages) EmailLabels(lang recipe.Language) recipe.EmailLabels {
	return recipe.EmailLabels{
		SubjectPrefix:      m.T(lang, msgEmailSubjectPrefix),
		IngredientsHeader:  m.T(lang, msgIngredientsHeader),
		InstructionsHeader: m.T(lang, msgInstructionsHeader),
		BodyPlaceholder:    m.T(lang, msgGmailBodyPlaceholder),
	}
}
