// Package command implements the line protocol interpreter.
//
// A request is one line of whitespace-separated tokens; the first token,
// case-insensitive, selects the verb:
//
//	SET key value [ttl]      -> OK
//	GET key                  -> "<value>, type: <String|VecStr|Hash>" or Nil
//	UPDATE key value [ttl]   -> OK, or "Error: Key does not exist"
//	DEL|DELETE key           -> OK
//	EXISTS key               -> YES | NO
//	RENAME old new           -> OK, or "Error: Key does not exist"
//	TYPE key                 -> String | VecStr | Hash | Nil
//	CLEARALL                 -> OK
//	PING                     -> PONG
//
// TTLs are whole seconds and default to the store's default TTL (60s) when
// absent or unparseable. Values holding ',' are Lists; values holding both
// ',' and ':' are Maps of key:value pairs.
//
// Interpreter.Respond returns the response terminated by "\r\n".
package command
