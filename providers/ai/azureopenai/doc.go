// Package azureopenai implements [ai.Provider] and [ai.StreamProvider] for
// Azure-hosted OpenAI chat completion deployments.
//
// The dialect differs from the direct OpenAI API in three ways: requests are
// authenticated with an api-key header instead of a Bearer token, the
// endpoint is scoped to a named deployment rather than a model parameter, and
// every call carries an api-version query parameter. When the deployment is
// wired to an "On Your Data" source, responses additionally carry retrieval
// citations under delta.context, which this package surfaces as citation
// stream events.
package azureopenai
