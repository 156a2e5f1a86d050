package i18n

import (
	"fmt"
	"strings"
)

// MessageKey identifies a canned reply in the catalog.
type MessageKey string

// Catalog message keys.
const (
	KeyWelcome             MessageKey = "welcome"
	KeyCleared             MessageKey = "cleared"
	KeyLanguageChanged     MessageKey = "language_changed"
	KeyLanguageSelect      MessageKey = "language_select"
	KeyHelp                MessageKey = "help"
	KeyGroupUsage          MessageKey = "group_usage"
	KeyTranslationEnabled  MessageKey = "translation_enabled"
	KeyTranslationDisabled MessageKey = "translation_disabled"
	KeyAdminOnly           MessageKey = "admin_only"
	KeyErrorFallback       MessageKey = "error_fallback"
)

func allKeys() []MessageKey {
	return []MessageKey{
		KeyWelcome,
		KeyCleared,
		KeyLanguageChanged,
		KeyLanguageSelect,
		KeyHelp,
		KeyGroupUsage,
		KeyTranslationEnabled,
		KeyTranslationDisabled,
		KeyAdminOnly,
		KeyErrorFallback,
	}
}

// Catalog holds localized canned replies keyed by (language, message key).
// NewCatalog guarantees that every supported language carries every key,
// so lookups never silently fall through for valid languages.
type Catalog struct {
	messages map[Code]map[MessageKey]string
}

// NewCatalog builds the built-in message catalog and verifies that it is
// complete for all supported languages.
func NewCatalog() (*Catalog, error) {
	c := &Catalog{messages: builtinMessages()}

	for _, lang := range Supported() {
		byKey, ok := c.messages[lang]
		if !ok {
			return nil, fmt.Errorf("message catalog missing language %q", lang)
		}
		for _, key := range allKeys() {
			if text, ok := byKey[key]; !ok || text == "" {
				return nil, fmt.Errorf("message catalog missing %q for language %q", key, lang)
			}
		}
	}

	return c, nil
}

// Get returns the message for a language and key. Invalid or
// translation-only languages fall back to English.
func (c *Catalog) Get(lang Code, key MessageKey) string {
	byKey, ok := c.messages[lang]
	if !ok {
		byKey = c.messages[English]
	}
	return byKey[key]
}

// EmergencyContact is one entry of the Taiwan emergency contact table.
type EmergencyContact struct {
	Label  string
	Number string
}

// EmergencyContacts lists the Taiwan hotlines included in the /emergency
// reply, in display order.
func EmergencyContacts() []EmergencyContact {
	return []EmergencyContact{
		{Label: "Police", Number: "110"},
		{Label: "Fire / Ambulance", Number: "119"},
		{Label: "Foreign Worker Hotline", Number: "1955"},
		{Label: "Anti-Trafficking Hotline", Number: "113"},
		{Label: "Anti-Fraud Hotline", Number: "165"},
		{Label: "Indonesia Representative", Number: "+886-2-2356-5156"},
	}
}

// EmergencyInfo renders the emergency contact table as a plain text reply.
func EmergencyInfo() string {
	var b strings.Builder
	b.WriteString("🚨 EMERGENCY CONTACTS:")
	for _, contact := range EmergencyContacts() {
		b.WriteString(fmt.Sprintf("\n- %s: %s", contact.Label, contact.Number))
	}
	return b.String()
}

func builtinMessages() map[Code]map[MessageKey]string {
	return map[Code]map[MessageKey]string{
		Indonesian: {
			KeyWelcome: `👋 Selamat datang di KawanBot!

Saya adalah asisten AI untuk membantu pekerja migran di Taiwan.

Saya dapat membantu dengan:
• Informasi ketenagakerjaan
• Layanan pemerintah
• Terjemahan bahasa
• Informasi kesehatan
• Kehidupan sehari-hari

Silakan ajukan pertanyaan Anda!`,
			KeyCleared:         "✅ Riwayat percakapan telah dihapus.\nAnda dapat memulai percakapan baru!",
			KeyLanguageChanged: "✅ Bahasa telah diubah ke Bahasa Indonesia.\nSaya sekarang akan merespons dalam bahasa Indonesia!",
			KeyLanguageSelect:  "🌐 Pilih bahasa Anda:\nKetik: /lang id (Indonesia)\n/lang zh (中文)\n/lang en (English)\n/lang vi (Tiếng Việt)",
			KeyHelp: `🤖 Cara menggunakan KawanBot:

Ketik pertanyaan Anda dalam bahasa apa pun, dan saya akan membantu!

Kategori bantuan:
• 💼 Masalah pekerjaan
• 🏛️ Layanan pemerintah
• 🏥 Informasi kesehatan
• 🌐 Bantuan terjemahan
• 🏠 Kehidupan sehari-hari
• 🚨 Kontak darurat`,
			KeyGroupUsage:          "Penggunaan:\n/translate on <bahasa>\n/translate off\n\nBahasa: id, zh, en, vi, th, fil",
			KeyTranslationEnabled:  "✅ Terjemahan otomatis diaktifkan ke %s.",
			KeyTranslationDisabled: "✅ Terjemahan otomatis dinonaktifkan.",
			KeyAdminOnly:           "🚫 Hanya admin grup yang dapat menggunakan perintah ini.",
			KeyErrorFallback:       "❌ Terjadi kesalahan. Silakan coba lagi nanti.",
		},
		Chinese: {
			KeyWelcome: `👋 歡迎使用 KawanBot！

我是協助在台灣的移工的 AI 助手。

我可以幫助您：
• 勞工資訊
• 政府服務
• 語言翻譯
• 健康資訊
• 日常生活

請隨時提出您的問題！`,
			KeyCleared:         "✅ 對話記錄已清除。\n您可以開始新的對話！",
			KeyLanguageChanged: "✅ 語言已更改為繁體中文。\n我現在將用中文回應！",
			KeyLanguageSelect:  "🌐 選擇您的語言：\n輸入: /lang id (印尼文)\n/lang zh (中文)\n/lang en (英文)\n/lang vi (越南文)",
			KeyHelp: `🤖 如何使用 KawanBot：

用任何語言輸入您的問題，我會幫助您！

協助類別：
• 💼 工作問題
• 🏛️ 政府服務
• 🏥 健康資訊
• 🌐 翻譯協助
• 🏠 日常生活
• 🚨 緊急聯絡`,
			KeyGroupUsage:          "使用方式：\n/translate on <語言>\n/translate off\n\n語言代碼: id, zh, en, vi, th, fil",
			KeyTranslationEnabled:  "✅ 已啟用自動翻譯為 %s。",
			KeyTranslationDisabled: "✅ 已停用自動翻譯。",
			KeyAdminOnly:           "🚫 只有群組管理員可以使用此指令。",
			KeyErrorFallback:       "❌ 發生錯誤，請稍後再試。",
		},
		English: {
			KeyWelcome: `👋 Welcome to KawanBot!

I'm an AI assistant to help migrant workers in Taiwan.

I can help with:
• Labor information
• Government services
• Language translation
• Health information
• Daily life

Please ask me anything!`,
			KeyCleared:         "✅ Chat history has been cleared.\nYou can start a new conversation!",
			KeyLanguageChanged: "✅ Language changed to English.\nI will now respond in English!",
			KeyLanguageSelect:  "🌐 Choose your language:\nType: /lang id (Indonesian)\n/lang zh (Chinese)\n/lang en (English)\n/lang vi (Vietnamese)",
			KeyHelp: `🤖 How to use KawanBot:

Type your question in any language, and I'll help you!

Help categories:
• 💼 Work problems
• 🏛️ Government services
• 🏥 Health information
• 🌐 Translation help
• 🏠 Daily life
• 🚨 Emergency contacts`,
			KeyGroupUsage:          "Usage:\n/translate on <language>\n/translate off\n\nLanguages: id, zh, en, vi, th, fil",
			KeyTranslationEnabled:  "✅ Auto-translation enabled to %s.",
			KeyTranslationDisabled: "✅ Auto-translation disabled.",
			KeyAdminOnly:           "🚫 Only group admins can use this command.",
			KeyErrorFallback:       "❌ An error occurred. Please try again later.",
		},
		Vietnamese: {
			KeyWelcome: `👋 Chào mừng đến với KawanBot!

Tôi là trợ lý AI giúp đỡ lao động nhập cư tại Đài Loan.

Tôi có thể giúp với:
• Thông tin lao động
• Dịch vụ chính phủ
• Dịch thuật ngôn ngữ
• Thông tin y tế
• Cuộc sống hàng ngày

Hãy hỏi tôi bất cứ điều gì!`,
			KeyCleared:         "✅ Lịch sử trò chuyện đã được xóa.\nBạn có thể bắt đầu cuộc trò chuyện mới!",
			KeyLanguageChanged: "✅ Đã đổi sang Tiếng Việt.\nTôi sẽ trả lời bằng Tiếng Việt!",
			KeyLanguageSelect:  "🌐 Chọn ngôn ngữ của bạn:\nNhập: /lang id (Tiếng Indonesia)\n/lang zh (Tiếng Trung)\n/lang en (Tiếng Anh)\n/lang vi (Tiếng Việt)",
			KeyHelp: `🤖 Cách sử dụng KawanBot:

Nhập câu hỏi của bạn bằng bất kỳ ngôn ngữ nào, tôi sẽ giúp bạn!

Các loại hỗ trợ:
• 💼 Vấn đề công việc
• 🏛️ Dịch vụ chính phủ
• 🏥 Thông tin y tế
• 🌐 Hỗ trợ dịch thuật
• 🏠 Cuộc sống hàng ngày
• 🚨 Liên hệ khẩn cấp`,
			KeyGroupUsage:          "Cách dùng:\n/translate on <ngôn ngữ>\n/translate off\n\nNgôn ngữ: id, zh, en, vi, th, fil",
			KeyTranslationEnabled:  "✅ Đã bật tự động dịch sang %s.",
			KeyTranslationDisabled: "✅ Đã tắt tự động dịch.",
			KeyAdminOnly:           "🚫 Chỉ quản trị viên nhóm mới có thể dùng lệnh này.",
			KeyErrorFallback:       "❌ Đã xảy ra lỗi. Vui lòng thử lại sau.",
		},
	}
}
