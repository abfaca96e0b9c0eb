package sqlinline

const QSelectProviderToken = `--sql 4f8a2b60-d1c7-4e39-95ab-72e0c6d814f9
SELECT token
FROM provider_credentials
WHERE provider = $1;
`

const QUpsertProviderToken = `--sql b27e9c04-5a31-48df-86b2-1fd4a07c3e58
INSERT INTO provider_credentials (provider, token, properties)
VALUES ($1, $2, $3)
ON CONFLICT (provider)
DO UPDATE SET token = EXCLUDED.token, properties = EXCLUDED.properties, updated_at = NOW();
`
