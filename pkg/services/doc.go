/*
Package services wraps the external APIs the knowledge sources depend
on: Gemini for text analysis, Google Fact Check Tools for claim lookup,
TwelveLabs for semantic video search, ElevenLabs for alert audio, plus
a local perceptual hash for image forensics.

Every service is optional. Missing credentials disable only that
service, and the Disabled implementations degrade to empty results so
the engine keeps running on graph structure alone.
*/
package services
