// Package chat connects the emote store to live chat.
//
// It provides two entrypoints:
//   - StartDiscordBot: listens for guild messages. Custom emotes written in a message
//     ("<:name:id>") are saved into the store; a message that is only ":name:" asks the bot
//     to post that emote, uploading it from the store to the guild when the guild lacks it.
//   - StartTwitchEmoteCollector: joins a Twitch channel anonymously and saves every emote
//     used in chat into the store.
//
// Both feed a single Collector, which serializes store writes so that the lookup and insert
// in emotes.Store.AddOne never interleave. Emote requests are serialized too: the guild lookup
// and upload for one request finish before the next request looks at the guild, so two quick
// ":name:" messages upload the emote once.
package chat
