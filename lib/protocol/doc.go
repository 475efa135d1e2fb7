/*
Package protocol defines the client-visible data model shared by every node:
the Command sum type, the Transaction wrapper that is agreed on by consensus,
node addresses and the text request format.

Command is a tagged union over Kind. Every function that branches on a command
switches exhaustively over the kinds defined here:

	cmd, err := protocol.Parse("PUT a b")
	if err != nil {
		// errors.Is(err, protocol.ErrInvalidRequest)
	}
	key, writes := protocol.WriteKey(cmd) // "a", true
*/
package protocol
