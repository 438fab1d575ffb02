package generator

import (
	"fmt"
	"strings"

	"pamong_newsroom/news"
)

// Prompt is the message set sent to the LLM. JSON asks the provider for a
// JSON object response.
type Prompt struct {
	System  string
	User    string
	History []Message
	JSON    bool
}

// Message carries optional history.
type Message struct {
	Role    string
	Content string
}

// DefaultSystemInstruction is used when neither settings nor config supply one.
const DefaultSystemInstruction = "Anda adalah redaktur senior portal berita PamongRakyat."

// BuildResearchPrompt asks for the day's most viral verified topics in Indonesia.
func BuildResearchPrompt(n int) Prompt {
	return Prompt{
		System: "Anda adalah analis tren media yang hanya melaporkan fakta terverifikasi.",
		User: fmt.Sprintf("Analisis dan temukan %d topik berita paling viral, trending, dan terverifikasi di Indonesia hari ini. "+
			"Berikan ringkasan akurat untuk masing-masing topik tersebut.", n),
	}
}

// BuildArticlesPrompt turns the research notes into a JSON batch of n drafts.
func BuildArticlesPrompt(trends string, n int, systemInstruction string) Prompt {
	if strings.TrimSpace(systemInstruction) == "" {
		systemInstruction = DefaultSystemInstruction
	}
	cats := make([]string, 0, len(news.Categories))
	for _, c := range news.Categories {
		cats = append(cats, string(c))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Berdasarkan tren terkini:\n%s\n\n", strings.TrimSpace(trends)))
	sb.WriteString(fmt.Sprintf("Buatkan %d artikel berita yang lengkap dan mendalam.\n", n))
	sb.WriteString("Setiap artikel wajib menyertakan:\n")
	sb.WriteString("- title: judul berita\n")
	sb.WriteString("- content: konten HTML, minimal 4 paragraf <p>\n")
	sb.WriteString(fmt.Sprintf("- category: pilih salah satu dari %s\n", strings.Join(cats, ", ")))
	sb.WriteString("- summary: ringkasan satu paragraf\n")
	sb.WriteString("- imagePrompt: deskripsi visual untuk generator gambar\n")
	sb.WriteString(`Balas hanya dengan objek JSON {"articles": [ ... ]}, tanpa penjelasan tambahan.`)

	return Prompt{
		System: systemInstruction,
		User:   sb.String(),
		JSON:   true,
	}
}

// BuildImagePrompt frames an illustration request as newspaper photography.
func BuildImagePrompt(description string) string {
	return "Professional journalism photography for a major newspaper, high resolution, realistic style: " + strings.TrimSpace(description)
}

// BuildLeadPrompt asks for a short journalistic lead for an article.
func BuildLeadPrompt(title, content, systemInstruction string) Prompt {
	return Prompt{
		System: systemInstruction,
		User:   fmt.Sprintf("Buatkan lead (ringkasan) jurnalistik pendek untuk berita: %s. Isi: %s", title, content),
	}
}

// BuildContinuePrompt asks the model to extend an article by one or two paragraphs.
func BuildContinuePrompt(content, systemInstruction string) Prompt {
	return Prompt{
		System: systemInstruction,
		User: "Lanjutkan penulisan artikel ini dalam format HTML (gunakan <p>). " +
			"Jangan mengulang kalimat terakhir.\n\n" + content,
	}
}

// BuildImprovePrompt asks for a style rewrite that keeps the meaning.
func BuildImprovePrompt(content, systemInstruction string) Prompt {
	return Prompt{
		System: systemInstruction,
		User:   "Tulis ulang artikel berikut agar memiliki gaya bahasa jurnalistik yang lebih profesional (Format HTML):\n\n" + content,
	}
}

// BuildAskPrompt answers a reader question from the article context.
func BuildAskPrompt(question, articleContext, systemInstruction string) Prompt {
	return Prompt{
		System: "Anda adalah asisten AI PamongRakyat. Jawab pertanyaan pembaca berdasarkan konteks berita yang diberikan dengan nada sopan dan informatif. " + systemInstruction,
		User:   fmt.Sprintf("Konteks Berita: %s\nPertanyaan Pembaca: %s", articleContext, question),
	}
}

// BuildTopicPrompt asks for a full draft on a topic as {title, content}.
func BuildTopicPrompt(topic, systemInstruction string) Prompt {
	return Prompt{
		System: systemInstruction,
		User:   fmt.Sprintf(`Tulis draft berita lengkap tentang: %s. Balas dalam format JSON {"title": "...", "content": "..."} dengan content berupa HTML.`, topic),
		JSON:   true,
	}
}
