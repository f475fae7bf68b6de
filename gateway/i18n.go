package gateway

import (
	"strings"

	"llmgate/providers/ai"
)

// SupportedLanguages lists the languages user-facing error messages exist
// in. Configuration validates against this list at startup.
var SupportedLanguages = []string{"en", "fr", "es", "de", "it", "pt"}

// IsSupportedLanguage reports whether code has a full template set.
func IsSupportedLanguage(code string) bool {
	for _, language := range SupportedLanguages {
		if language == code {
			return true
		}
	}
	return false
}

// errorTemplates holds one fixed template per (language, kind). Templates
// are parameterized only by the provider display name ({provider}); raw
// vendor text never appears in them, so a vendor's wording can never leak
// into the UI.
var errorTemplates = map[string]map[ErrorKind]string{
	"en": {
		KindRateLimit:       "Too many requests sent to the {provider} service. Please wait a moment before trying again.",
		KindAuthFailure:     "Authentication issue with {provider}. Please contact the administrator.",
		KindBadRequest:      "Invalid request sent to {provider}. Please rephrase your question.",
		KindServerError:     "Temporary {provider} service error. Please try again in a few moments.",
		KindNetworkFailure:  "Connection issue with {provider}. Check your internet connection and try again.",
		KindQuotaExceeded:   "{provider} quota or limit reached. Please contact the administrator.",
		KindContentFiltered: "Your request was filtered by content policies. Please rephrase your question.",
		KindUnknown:         "Unexpected error with {provider}. Please try again or contact the administrator if the problem persists.",
	},
	"fr": {
		KindRateLimit:       "Trop de requêtes ont été envoyées au service {provider}. Veuillez patienter quelques instants avant de réessayer.",
		KindAuthFailure:     "Problème d'authentification avec {provider}. Veuillez contacter l'administrateur.",
		KindBadRequest:      "Requête invalide envoyée à {provider}. Veuillez reformuler votre question.",
		KindServerError:     "Erreur temporaire du service {provider}. Veuillez réessayer dans quelques instants.",
		KindNetworkFailure:  "Problème de connexion avec {provider}. Vérifiez votre connexion internet et réessayez.",
		KindQuotaExceeded:   "Quota ou limite de {provider} atteint. Veuillez contacter l'administrateur.",
		KindContentFiltered: "Votre demande a été filtrée par les politiques de contenu. Veuillez reformuler votre question.",
		KindUnknown:         "Erreur inattendue avec {provider}. Veuillez réessayer ou contacter l'administrateur si le problème persiste.",
	},
	"es": {
		KindRateLimit:       "Se han enviado demasiadas solicitudes al servicio {provider}. Espere un momento antes de volver a intentarlo.",
		KindAuthFailure:     "Problema de autenticación con {provider}. Póngase en contacto con el administrador.",
		KindBadRequest:      "Solicitud no válida enviada a {provider}. Reformule su pregunta.",
		KindServerError:     "Error temporal del servicio {provider}. Vuelva a intentarlo en unos momentos.",
		KindNetworkFailure:  "Problema de conexión con {provider}. Compruebe su conexión a internet y vuelva a intentarlo.",
		KindQuotaExceeded:   "Se ha alcanzado la cuota o el límite de {provider}. Póngase en contacto con el administrador.",
		KindContentFiltered: "Su solicitud fue filtrada por las políticas de contenido. Reformule su pregunta.",
		KindUnknown:         "Error inesperado con {provider}. Vuelva a intentarlo o contacte al administrador si el problema persiste.",
	},
	"de": {
		KindRateLimit:       "Zu viele Anfragen an den {provider}-Dienst gesendet. Bitte warten Sie einen Moment, bevor Sie es erneut versuchen.",
		KindAuthFailure:     "Authentifizierungsproblem mit {provider}. Bitte wenden Sie sich an den Administrator.",
		KindBadRequest:      "Ungültige Anfrage an {provider} gesendet. Bitte formulieren Sie Ihre Frage neu.",
		KindServerError:     "Vorübergehender Fehler des {provider}-Dienstes. Bitte versuchen Sie es in wenigen Augenblicken erneut.",
		KindNetworkFailure:  "Verbindungsproblem mit {provider}. Überprüfen Sie Ihre Internetverbindung und versuchen Sie es erneut.",
		KindQuotaExceeded:   "{provider}-Kontingent oder -Limit erreicht. Bitte wenden Sie sich an den Administrator.",
		KindContentFiltered: "Ihre Anfrage wurde durch Inhaltsrichtlinien gefiltert. Bitte formulieren Sie Ihre Frage neu.",
		KindUnknown:         "Unerwarteter Fehler mit {provider}. Bitte versuchen Sie es erneut oder wenden Sie sich an den Administrator, wenn das Problem weiterhin besteht.",
	},
	"it": {
		KindRateLimit:       "Troppe richieste inviate al servizio {provider}. Attendere qualche istante prima di riprovare.",
		KindAuthFailure:     "Problema di autenticazione con {provider}. Contattare l'amministratore.",
		KindBadRequest:      "Richiesta non valida inviata a {provider}. Riformulare la domanda.",
		KindServerError:     "Errore temporaneo del servizio {provider}. Riprovare tra qualche istante.",
		KindNetworkFailure:  "Problema di connessione con {provider}. Verificare la connessione internet e riprovare.",
		KindQuotaExceeded:   "Quota o limite di {provider} raggiunto. Contattare l'amministratore.",
		KindContentFiltered: "La richiesta è stata filtrata dalle politiche sui contenuti. Riformulare la domanda.",
		KindUnknown:         "Errore imprevisto con {provider}. Riprovare o contattare l'amministratore se il problema persiste.",
	},
	"pt": {
		KindRateLimit:       "Muitas solicitações enviadas ao serviço {provider}. Aguarde um momento antes de tentar novamente.",
		KindAuthFailure:     "Problema de autenticação com {provider}. Entre em contato com o administrador.",
		KindBadRequest:      "Solicitação inválida enviada para {provider}. Reformule sua pergunta.",
		KindServerError:     "Erro temporário do serviço {provider}. Tente novamente em alguns instantes.",
		KindNetworkFailure:  "Problema de conexão com {provider}. Verifique sua conexão com a internet e tente novamente.",
		KindQuotaExceeded:   "Cota ou limite de {provider} atingido. Entre em contato com o administrador.",
		KindContentFiltered: "Sua solicitação foi filtrada pelas políticas de conteúdo. Reformule sua pergunta.",
		KindUnknown:         "Erro inesperado com {provider}. Tente novamente ou entre em contato com o administrador se o problema persistir.",
	},
}

// userMessage renders the fixed template for (language, kind) with the
// provider display name. Unknown languages fall back to English; the
// result is always non-empty.
func userMessage(language string, kind ErrorKind, provider ai.ProviderID) string {
	templates, exists := errorTemplates[language]
	if !exists {
		templates = errorTemplates["en"]
	}
	template, exists := templates[kind]
	if !exists {
		template = errorTemplates["en"][KindUnknown]
	}
	return strings.ReplaceAll(template, "{provider}", provider.DisplayName())
}
