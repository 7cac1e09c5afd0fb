package intake

import (
	"fmt"
	"strings"
)

// User-facing copy, pt-br. Names are wrapped in asterisks for WhatsApp bold.

func phraseWelcome(name string) string {
	if name != "" {
		return fmt.Sprintf("Olá *%s*! Sou a Medy, a IA da Medprev.\n\nPosso te ajudar a encontrar consultas, exames, entre outros. Do que você precisa?", name)
	}
	return "Olá! Sou a Medy, a IA da Medprev.\n\nPosso te ajudar a encontrar consultas, exames, entre outros. Do que você precisa?"
}

func phraseWelcomeBack(name string) string {
	return fmt.Sprintf("Oi *%s*, bom te ver de volta!", name)
}

func phraseLocationRequest() string {
	return "Vamos buscar procedimentos perto de você! Poderia me informar sua localização, por favor?\n\nVocê pode enviar a localização ou escrever seu CEP"
}

func phraseImagePrompt() string {
	return "Agora me envie uma foto do seu pedido médico, por favor"
}

func phraseExamsFound(procedures []string) string {
	var b strings.Builder
	b.WriteString("Aqui estão os exames da imagem que você enviou:")
	for _, procedure := range procedures {
		b.WriteString("\n- ")
		b.WriteString(procedure)
	}
	return b.String()
}

func phraseExamsNotFound() string {
	return "Não consegui identificar exames na imagem que você enviou"
}

func phraseScheduleLink(url string) string {
	return fmt.Sprintf("Você pode agendar seus exames por este link:\n%s", url)
}

func phraseConfirmHandoff() string {
	return "Você gostaria de conversar com um(a) atendente?"
}

func phraseHandoff(name string) string {
	if name != "" {
		return fmt.Sprintf("Obrigado *%s*. Vou encaminhar você para um(a) atendente", name)
	}
	return "Vou encaminhar você para um(a) atendente"
}

func phraseEndConversation() string {
	return "Sem problema. Vou finalizar seu atendimento por aqui"
}
