package postgres

const querySchema = `
CREATE TABLE IF NOT EXISTS birthdays (
    id            UUID PRIMARY KEY,
    name          TEXT NOT NULL,
    date_of_birth DATE NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS birthdays_name_idx ON birthdays (name, id);
`

const queryListAll = `
SELECT id, name, date_of_birth, created_at
FROM birthdays
ORDER BY name, id
`

const queryInsertBirthday = `
INSERT INTO birthdays (id, name, date_of_birth, created_at)
VALUES ($1, $2, $3, $4)
`

const queryDeleteBirthday = `
DELETE FROM birthdays WHERE id = $1 RETURNING id
`
