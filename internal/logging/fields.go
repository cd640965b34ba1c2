package logging

// Standard field names for consistent logging across the application.
const (
	// FieldComponent identifies the component generating the log.
	FieldComponent = "component"

	// FieldOperation identifies the coordinator operation being performed.
	FieldOperation = "operation"

	// FieldMethod is the RPC method name or HTTP method.
	FieldMethod = "method"

	// FieldTopic is a push-subscription topic.
	FieldTopic = "topic"

	// FieldSubscriptionID is the caller-chosen subscription identifier.
	FieldSubscriptionID = "subscription_id"

	// FieldFailoverStatus is the appliance HA role.
	FieldFailoverStatus = "failover_status"

	// FieldBaseURL is the appliance endpoint a request went to.
	FieldBaseURL = "base_url"

	// FieldRedirect is the navigation target after login.
	FieldRedirect = "redirect"

	// FieldRequestID is a unique identifier for each local API request.
	FieldRequestID = "request_id"

	// FieldPath is the URL path of an HTTP request.
	FieldPath = "path"

	// FieldStatusCode is the HTTP status code of a response.
	FieldStatusCode = "status_code"

	// FieldDuration is the duration of an operation.
	FieldDuration = "duration"

	// FieldRemoteAddr is the client's remote address.
	FieldRemoteAddr = "remote_addr"
)
