package config

// DefaultSuspiciousAPIs are Windows API names whose presence in a sample
// is worth surfacing. Order is the report order.
var DefaultSuspiciousAPIs = []string{
	"CreateRemoteThread",
	"WriteProcessMemory",
	"VirtualAllocEx",
	"OpenProcess",
	"LoadLibrary",
	"GetProcAddress",
	"WinExec",
	"ShellExecute",
	"URLDownloadToFile",
	"InternetOpen",
	"CreateService",
	"RegSetValue",
	"CryptEncrypt",
}

// DefaultNetworkPatterns flag network-capable code.
var DefaultNetworkPatterns = []string{"socket", "connect", "send", "recv", "http", "ftp"}

// DefaultCryptoPatterns flag cryptographic routines.
var DefaultCryptoPatterns = []string{"aes", "rsa", "encrypt", "decrypt", "cipher", "hash", "md5", "sha"}

// DefaultBoundaryKeywords mark likely function starts across the source
// languages common in malware corpora (C, Python, VBScript, assembly).
var DefaultBoundaryKeywords = []string{"def ", "function ", "sub ", "PROC", "void ", "int main"}

// DefaultFamilies are well-known family names recognized in sample paths.
var DefaultFamilies = []string{
	"emotet", "trickbot", "ryuk", "conti", "lockbit", "revil",
	"wannacry", "notpetya", "mirai", "zeus", "dridex", "qakbot",
	"cobalt", "metasploit", "mimikatz", "powersploit",
}

// DefaultRouterRules categorize a sample before retrieval. First match wins.
var DefaultRouterRules = []RouterRule{
	{Category: "ransomware", Keywords: []string{"encrypt", "ransom", "bitcoin", ".locked"}},
	{Category: "rats", Keywords: []string{"keylog", "screenshot", "clipboard", "rat"}},
	{Category: "rootkits", Keywords: []string{"kernel", "driver", "rootkit", "ssdt"}},
	{Category: "cryptominers", Keywords: []string{"mining", "xmrig", "monero", "stratum"}},
	{Category: "botnets", Keywords: []string{"bot", "ddos", "irc", "command"}},
	{Category: "infostealers", Keywords: []string{"password", "cookie", "credential", "wallet"}},
}

// DefaultExcludes are glob patterns skipped during corpus walks.
var DefaultExcludes = []string{
	".git/**",
	"__pycache__/**",
	"node_modules/**",
	"*.zip",
	"*.7z",
	"*.rar",
}

// DefaultConfig returns a Config with sensible defaults. The keyword
// lists mirror the indicator sets the extractor and router were tuned on;
// deployments extend them through .malsift.yml.
func DefaultConfig() *Config {
	return &Config{
		Provider:        ProviderOllama,
		Model:           "dolphin3:8b",
		Temperature:     0.3,
		ChatTemperature: 0.7,
		ContextSize:     32768,
		OllamaURL:       "http://localhost:11434",
		DataDir:         ".malsift",
		ReportsDir:      "reports",
		MaxConcurrency:  4,
		UpsertBatch:     1000,
		Embedding: EmbeddingConfig{
			Provider:  ProviderOllama,
			CodeModel: "nomic-embed-text",
			CodeDim:   768,
			TextModel: "mxbai-embed-large",
			TextDim:   1024,
		},
		Corpus: CorpusConfig{
			Include:          []string{"**"},
			Exclude:          DefaultExcludes,
			MaxFileSize:      1 << 20,
			CodeExtensions:   []string{".c", ".cpp", ".h", ".hpp", ".py", ".asm", ".s", ".vbs", ".ps1", ".bat", ".cmd", ".js"},
			BinaryExtensions: []string{".exe", ".dll", ".sys", ".so", ".dylib"},
			DocExtensions:    []string{".txt", ".md", ".pdf"},
			Families:         DefaultFamilies,
		},
		Chunking: ChunkingConfig{
			BoundaryKeywords: DefaultBoundaryKeywords,
			BoundaryMinLines: 10,
			MaxLines:         50,
		},
		Signatures: SignatureConfig{
			SuspiciousAPIs:  DefaultSuspiciousAPIs,
			NetworkPatterns: DefaultNetworkPatterns,
			CryptoPatterns:  DefaultCryptoPatterns,
			RouterRules:     DefaultRouterRules,
		},
		Retrieval: RetrievalConfig{
			CodeCollection: "malware_code",
			TextCollection: "malware_docs",
			KeywordBoost:   0.1,
			SearchTopK:     20,
			AnalyzeTopK:    10,
			ChatTopK:       3,
		},
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8717,
			AllowedOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		},
	}
}
