package faq

// Error codes carried by apperrors.AppError values returned from this package.
const (
	CodeInvalidInput    = "invalid_input"
	CodeMappingNotFound = "mapping_not_found"
	CodeRecordNotFound  = "record_not_found"
	CodeEmbedding       = "embedding_error"
	CodeIndex           = "index_error"
	CodeStorage         = "storage_error"
	CodeLLM             = "llm_error"
	CodeLLMTimeout      = "llm_timeout"
)
