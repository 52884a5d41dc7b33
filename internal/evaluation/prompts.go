package evaluation

import (
	"fmt"
	"strings"
)

const analysisSystemPrompt = `Eres un evaluador experto de un diplomado en consultoría estratégica. ` +
	`Analizas la respuesta del participante a un dilema de consultoría considerando también su desempeño ` +
	`en las evaluaciones modulares. Ofrece una retroalimentación personalizada, constructiva y concreta: ` +
	`fortalezas, áreas de mejora y una valoración final. Formatea la respuesta usando etiquetas HTML básicas ` +
	`como <p> para los párrafos.`

func dilemmaPrompt(theme string) string {
	return fmt.Sprintf(`Genera un dilema de %s complejo y realista, adecuado para una evaluación final de un diplomado. `+
		`El dilema debe presentar un conflicto de intereses o una situación ambigua que requiera un análisis profundo `+
		`y una propuesta de solución estratégica. Sé conciso y ve directo al grano, no excedas los 200 tokens. `+
		`Formatea la respuesta usando etiquetas HTML básicas como <p> para los párrafos.`, theme)
}

func analysisPrompt(digest Digest, dilemma, response string) string {
	var b strings.Builder
	b.WriteString("Resultados de las evaluaciones modulares:\n")
	b.WriteString(digest.String())
	b.WriteString("\n\nDilema planteado:\n")
	b.WriteString(strings.TrimSpace(dilemma))
	b.WriteString("\n\nRespuesta del participante:\n")
	b.WriteString(strings.TrimSpace(response))
	return b.String()
}
