package errors

// ErrorNum ArangoDB 后端错误编号（响应体中的 errorNum 字段）
//
// 只收录客户端需要识别的部分，完整列表见 ArangoDB 的 errors.dat。
type ErrorNum int

const (
	ErrorNumNone ErrorNum = 0

	// 通用错误
	ErrorNumFailed          ErrorNum = 1
	ErrorNumInternal        ErrorNum = 4
	ErrorNumBadParameter    ErrorNum = 10
	ErrorNumForbidden       ErrorNum = 11
	ErrorNumNotImplemented  ErrorNum = 9
	ErrorNumHTTPBadParam    ErrorNum = 400
	ErrorNumHTTPUnauthorize ErrorNum = 401
	ErrorNumHTTPForbidden   ErrorNum = 403
	ErrorNumHTTPNotFound    ErrorNum = 404
	ErrorNumHTTPMethod      ErrorNum = 405
	ErrorNumHTTPCorrupted   ErrorNum = 600

	// 存储与集合错误
	ErrorNumConflict                 ErrorNum = 1200
	ErrorNumDocumentNotFound         ErrorNum = 1202
	ErrorNumDataSourceNotFound       ErrorNum = 1203
	ErrorNumCollectionParamMissing   ErrorNum = 1204
	ErrorNumDocumentHandleBad        ErrorNum = 1205
	ErrorNumDuplicateName            ErrorNum = 1207
	ErrorNumIllegalName              ErrorNum = 1208
	ErrorNumNoIndex                  ErrorNum = 1209
	ErrorNumUniqueConstraintViolated ErrorNum = 1210
	ErrorNumIndexNotFound            ErrorNum = 1212
	ErrorNumDocumentKeyBad           ErrorNum = 1221
	ErrorNumDocumentKeyUnexpected    ErrorNum = 1222
	ErrorNumDocumentTypeInvalid      ErrorNum = 1227
	ErrorNumDatabaseNotFound         ErrorNum = 1228
	ErrorNumDatabaseNameInvalid      ErrorNum = 1229
	ErrorNumUseSystemDatabase        ErrorNum = 1230

	// AQL 错误
	ErrorNumQueryKilled           ErrorNum = 1500
	ErrorNumQueryParse            ErrorNum = 1501
	ErrorNumQueryEmpty            ErrorNum = 1502
	ErrorNumQueryBindParamMissing ErrorNum = 1551
	ErrorNumQueryBindParamUnknown ErrorNum = 1552
	ErrorNumQueryBindParamType    ErrorNum = 1553
)

var errorNumNames = map[ErrorNum]string{
	ErrorNumFailed:                   "ERROR_FAILED",
	ErrorNumInternal:                 "ERROR_INTERNAL",
	ErrorNumBadParameter:             "ERROR_BAD_PARAMETER",
	ErrorNumForbidden:                "ERROR_FORBIDDEN",
	ErrorNumNotImplemented:           "ERROR_NOT_IMPLEMENTED",
	ErrorNumHTTPBadParam:             "ERROR_HTTP_BAD_PARAMETER",
	ErrorNumHTTPUnauthorize:          "ERROR_HTTP_UNAUTHORIZED",
	ErrorNumHTTPForbidden:            "ERROR_HTTP_FORBIDDEN",
	ErrorNumHTTPNotFound:             "ERROR_HTTP_NOT_FOUND",
	ErrorNumHTTPMethod:               "ERROR_HTTP_METHOD_NOT_ALLOWED",
	ErrorNumHTTPCorrupted:            "ERROR_HTTP_CORRUPTED_JSON",
	ErrorNumConflict:                 "ERROR_ARANGO_CONFLICT",
	ErrorNumDocumentNotFound:         "ERROR_ARANGO_DOCUMENT_NOT_FOUND",
	ErrorNumDataSourceNotFound:       "ERROR_ARANGO_DATA_SOURCE_NOT_FOUND",
	ErrorNumCollectionParamMissing:   "ERROR_ARANGO_COLLECTION_PARAMETER_MISSING",
	ErrorNumDocumentHandleBad:        "ERROR_ARANGO_DOCUMENT_HANDLE_BAD",
	ErrorNumDuplicateName:            "ERROR_ARANGO_DUPLICATE_NAME",
	ErrorNumIllegalName:              "ERROR_ARANGO_ILLEGAL_NAME",
	ErrorNumNoIndex:                  "ERROR_ARANGO_NO_INDEX",
	ErrorNumUniqueConstraintViolated: "ERROR_ARANGO_UNIQUE_CONSTRAINT_VIOLATED",
	ErrorNumIndexNotFound:            "ERROR_ARANGO_INDEX_NOT_FOUND",
	ErrorNumDocumentKeyBad:           "ERROR_ARANGO_DOCUMENT_KEY_BAD",
	ErrorNumDocumentKeyUnexpected:    "ERROR_ARANGO_DOCUMENT_KEY_UNEXPECTED",
	ErrorNumDocumentTypeInvalid:      "ERROR_ARANGO_DOCUMENT_TYPE_INVALID",
	ErrorNumDatabaseNotFound:         "ERROR_ARANGO_DATABASE_NOT_FOUND",
	ErrorNumDatabaseNameInvalid:      "ERROR_ARANGO_DATABASE_NAME_INVALID",
	ErrorNumUseSystemDatabase:        "ERROR_ARANGO_USE_SYSTEM_DATABASE",
	ErrorNumQueryKilled:              "ERROR_QUERY_KILLED",
	ErrorNumQueryParse:               "ERROR_QUERY_PARSE",
	ErrorNumQueryEmpty:               "ERROR_QUERY_EMPTY",
	ErrorNumQueryBindParamMissing:    "ERROR_QUERY_BIND_PARAMETER_MISSING",
	ErrorNumQueryBindParamUnknown:    "ERROR_QUERY_BIND_PARAMETER_UNDECLARED",
	ErrorNumQueryBindParamType:       "ERROR_QUERY_BIND_PARAMETER_TYPE",
}

// String 返回 ArangoDB 的错误常量名
func (n ErrorNum) String() string {
	if name, ok := errorNumNames[n]; ok {
		return name
	}
	return "ERROR_UNKNOWN"
}
