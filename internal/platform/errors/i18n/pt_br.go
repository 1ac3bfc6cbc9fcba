package i18n

var ptBRCatalog = &Catalog{
	locale: "pt-BR",
	messages: map[Code]string{
		CodeUnknown:              "Algo deu errado. Tente novamente.",
		CodeAuthRequired:         "Entre para buscar especialistas",
		CodeMalformedParameter:   "O parâmetro de busca {{.Parameter}} não é válido",
		CodeUpstreamUnavailable:  "Uma fonte de busca está indisponível. Tente novamente mais tarde.",
		CodeConfigurationInvalid: "O serviço não está configurado corretamente",

		CodeVerificationCodeInvalid: "O código de verificação não é válido",
		CodeSignInStateInvalid:      "Este link de entrada não é válido. Comece novamente pela caixa de busca.",
		CodeSignInStateExpired:      "Este link de entrada expirou. Comece novamente pela caixa de busca.",

		CodeInvalidRequest: "A requisição não é válida",
	},
}
